package members

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Member
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Member)}
}

func (r *MemoryRepo) Create(ctx context.Context, m Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takenLocked(m, "") {
		return ErrConflict
	}
	r.data[m.ID] = m
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, m Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[m.ID]; !ok {
		return ErrNotFound
	}
	if r.takenLocked(m, m.ID) {
		return ErrConflict
	}
	r.data[m.ID] = m
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Member, error) {
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.data[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) GetByDNI(ctx context.Context, dni string) (Member, error) {
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.data {
		if m.DNI != nil && *m.DNI == dni {
			return m, nil
		}
	}
	return Member{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Member, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	var matched []Member
	for _, m := range r.data {
		if matchesFilter(m, f) {
			matched = append(matched, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := sortKey(matched[i], f.Sort), sortKey(matched[j], f.Sort)
		if a == b {
			return matched[i].ID < matched[j].ID
		}
		if f.Desc {
			return a > b
		}
		return a < b
	})

	total := len(matched)
	offset := (f.Page - 1) * f.PageSize
	if offset >= total {
		return []Member{}, total, nil
	}
	end := offset + f.PageSize
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) CountByInstitution(ctx context.Context, institutionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, m := range r.data {
		if m.InstitutionID != nil && *m.InstitutionID == institutionID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) takenLocked(m Member, exceptID string) bool {
	for id, other := range r.data {
		if id == exceptID {
			continue
		}
		if m.DNI != nil && other.DNI != nil && *m.DNI == *other.DNI {
			return true
		}
		if m.Email != nil && other.Email != nil && *m.Email == *other.Email {
			return true
		}
	}
	return false
}

func matchesFilter(m Member, f ListFilter) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.InstitutionID != "" && (m.InstitutionID == nil || *m.InstitutionID != f.InstitutionID) {
		return false
	}
	if f.Q == "" {
		return true
	}
	q := strings.ToLower(f.Q)
	if !f.SkipDNI && m.DNI != nil && strings.Contains(*m.DNI, f.Q) {
		return true
	}
	if strings.Contains(strings.ToLower(m.FirstName), q) || strings.Contains(strings.ToLower(m.LastName), q) {
		return true
	}
	return m.Email != nil && strings.Contains(strings.ToLower(*m.Email), q)
}

func sortKey(m Member, field string) string {
	switch field {
	case SortFirstName:
		return m.FirstName
	case SortDNI:
		if m.DNI == nil {
			return ""
		}
		return *m.DNI
	case SortJoinedAt:
		return m.JoinedAt.UTC().Format("20060102150405.000000000")
	case SortCreatedAt:
		return m.CreatedAt.UTC().Format("20060102150405.000000000")
	default:
		return m.LastName
	}
}

var _ Repo = (*MemoryRepo)(nil)
