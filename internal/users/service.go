package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docuflow/internal/shared/validate"
)

const minPasswordLength = 8

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create registers a password account.
func (s *Service) Create(ctx context.Context, email, name, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	issues := validate.Issues{}
	if !validate.Email(email) {
		issues.Add("email", "must be a valid email")
	}
	if len(password) < minPasswordLength {
		issues.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if err := issues.Err(); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: &hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate checks a password login. Unknown emails and accounts without a
// password fail the same way as a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if user.PasswordHash == nil {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpsertFromGitHub creates or refreshes the account behind a GitHub login.
func (s *Service) UpsertFromGitHub(ctx context.Context, p GitHubProfile) (User, error) {
	login := strings.TrimSpace(p.Login)
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if login == "" || email == "" {
		return User{}, fmt.Errorf("%w: github login and email are required", ErrInvalidInput)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = login
	}
	now := s.now()
	return s.Repo.UpsertGitHub(ctx, User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        name,
		GitHubLogin: &login,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}
