package institutions

import "context"

// Repo defines persistence operations for institutions.
type Repo interface {
	Create(ctx context.Context, inst Institution) error
	Update(ctx context.Context, inst Institution) error
	GetByID(ctx context.Context, id string) (Institution, error)
	GetByCUIT(ctx context.Context, cuit string) (Institution, error)
	List(ctx context.Context, f ListFilter) ([]Institution, int, error)
	Delete(ctx context.Context, id string) error
}
