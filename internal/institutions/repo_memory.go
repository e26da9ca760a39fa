package institutions

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Institution
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Institution)}
}

func (r *MemoryRepo) Create(ctx context.Context, inst Institution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cuitTakenLocked(inst.CUIT, "") {
		return ErrConflict
	}
	r.data[inst.ID] = inst
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, inst Institution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[inst.ID]; !ok {
		return ErrNotFound
	}
	if r.cuitTakenLocked(inst.CUIT, inst.ID) {
		return ErrConflict
	}
	r.data[inst.ID] = inst
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Institution, error) {
	if err := ctx.Err(); err != nil {
		return Institution{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.data[id]
	if !ok {
		return Institution{}, ErrNotFound
	}
	return inst, nil
}

func (r *MemoryRepo) GetByCUIT(ctx context.Context, cuit string) (Institution, error) {
	if err := ctx.Err(); err != nil {
		return Institution{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inst := range r.data {
		if inst.CUIT == cuit {
			return inst, nil
		}
	}
	return Institution{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Institution, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	r.mu.RLock()
	var matched []Institution
	for _, inst := range r.data {
		if search == "" || matchesSearch(inst, search) {
			matched = append(matched, inst)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
	})

	total := len(matched)
	offset := (f.Page - 1) * f.Limit
	if offset >= total {
		return []Institution{}, total, nil
	}
	end := offset + f.Limit
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

func (r *MemoryRepo) cuitTakenLocked(cuit, exceptID string) bool {
	for id, inst := range r.data {
		if id != exceptID && inst.CUIT == cuit {
			return true
		}
	}
	return false
}

func matchesSearch(inst Institution, search string) bool {
	if strings.Contains(strings.ToLower(inst.Name), search) || strings.Contains(strings.ToLower(inst.CUIT), search) {
		return true
	}
	return inst.Email != nil && strings.Contains(strings.ToLower(*inst.Email), search)
}

var _ Repo = (*MemoryRepo)(nil)
