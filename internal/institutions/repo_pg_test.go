package institutions

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoListBuildsSearchQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM institutions WHERE (name ILIKE $1 OR cuit ILIKE $2 OR email ILIKE $3)")).
		WithArgs("%norte%", "%norte%", "%norte%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("FROM institutions WHERE (name ILIKE $1 OR cuit ILIKE $2 OR email ILIKE $3) ORDER BY name ASC LIMIT 10 OFFSET 10")).
		WithArgs("%norte%", "%norte%", "%norte%").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("inst-1", "Clínica Norte", "30-11111111-1", nil, nil, "info@norte.org", nil, true, now, now))

	items, total, err := repo.List(context.Background(), ListFilter{Search: "norte", Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 11 || len(items) != 1 {
		t.Fatalf("unexpected result total=%d len=%d", total, len(items))
	}
	if items[0].Email == nil || *items[0].Email != "info@norte.org" || items[0].Address != nil {
		t.Fatalf("unexpected nullable mapping: %+v", items[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO institutions").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), Institution{ID: "i1", Name: "A", CUIT: "30-11111111-1", IsActive: true, CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPGRepoDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("DELETE FROM institutions").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetByIDMapsMalformedUUIDToNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("FROM institutions WHERE id = \\$1").
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02"})

	_, err = (&PGRepo{DB: db}).GetByID(context.Background(), "not-a-uuid")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
