package members

import "context"

// Repo defines persistence operations for members.
type Repo interface {
	Create(ctx context.Context, m Member) error
	Update(ctx context.Context, m Member) error
	GetByID(ctx context.Context, id string) (Member, error)
	GetByDNI(ctx context.Context, dni string) (Member, error)
	List(ctx context.Context, f ListFilter) ([]Member, int, error)
	Delete(ctx context.Context, id string) error
	CountByInstitution(ctx context.Context, institutionID string) (int, error)
}
