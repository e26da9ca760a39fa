package health

import (
	"context"
	"database/sql"
	"time"
)

// Database states reported by Check.
const (
	DatabaseConnected = "connected"
	DatabaseMemory    = "memory"
	DatabaseError     = "error"
)

const checkTimeout = 3 * time.Second

// Execer is the slice of *sql.DB the check needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Service encapsulates health-related checks.
type Service struct {
	// DB is nil when the app runs on in-memory repositories.
	DB  Execer
	Now func() time.Time
}

// Status is the outcome of a check.
type Status struct {
	Database  string
	Err       error
	CheckedAt time.Time
}

// Healthy reports whether every dependency answered.
func (s Status) Healthy() bool {
	return s.Err == nil
}

// NewService constructs a new health service. db may be nil.
func NewService(db *sql.DB) *Service {
	if db == nil {
		return &Service{}
	}
	return &Service{DB: db}
}

// Check runs SELECT 1 against the database.
func (s *Service) Check(ctx context.Context) Status {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	st := Status{Database: DatabaseMemory, CheckedAt: now().UTC()}
	if s.DB == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if _, err := s.DB.ExecContext(ctx, "SELECT 1"); err != nil {
		st.Database = DatabaseError
		st.Err = err
		return st
	}
	st.Database = DatabaseConnected
	return st
}
