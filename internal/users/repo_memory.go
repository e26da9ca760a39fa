package users

import (
	"context"
	"strings"
	"sync"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmailLocked(user.Email); ok {
		return ErrConflict
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byEmailLocked(email)
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) UpsertGitHub(ctx context.Context, user User) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byLoginLocked(*user.GitHubLogin)
	if !ok {
		existing, ok = r.byEmailLocked(user.Email)
	}
	if !ok {
		r.users[user.ID] = user
		return user, nil
	}
	existing.Email = user.Email
	existing.GitHubLogin = user.GitHubLogin
	existing.AvatarURL = user.AvatarURL
	if existing.Name == "" {
		existing.Name = user.Name
	}
	existing.UpdatedAt = user.UpdatedAt
	r.users[existing.ID] = existing
	return existing, nil
}

func (r *MemoryRepo) byEmailLocked(email string) (User, bool) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return User{}, false
}

func (r *MemoryRepo) byLoginLocked(login string) (User, bool) {
	for _, u := range r.users {
		if u.GitHubLogin != nil && strings.EqualFold(*u.GitHubLogin, login) {
			return u, true
		}
	}
	return User{}, false
}
