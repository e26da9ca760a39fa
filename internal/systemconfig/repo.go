package systemconfig

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Repo.Get before the row is created.
var ErrNotFound = errors.New("system config not found")

// Repo persists the configuration row.
type Repo interface {
	Get(ctx context.Context) (Config, error)
	// Save inserts or replaces the row.
	Save(ctx context.Context, cfg Config) error
}
