package systemconfig

import (
	"context"
	"sync"
)

// MemoryRepo keeps the configuration in process.
type MemoryRepo struct {
	mu  sync.Mutex
	cfg *Config
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Get(ctx context.Context) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil {
		return Config{}, ErrNotFound
	}
	return *r.cfg, nil
}

func (r *MemoryRepo) Save(ctx context.Context, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg != nil {
		cfg.CreatedAt = r.cfg.CreatedAt
	}
	r.cfg = &cfg
	return nil
}
