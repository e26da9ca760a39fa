package members

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoListAppliesFiltersAndSort(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	where := "WHERE (status = $1 AND (dni LIKE $2 OR first_name ILIKE $3 OR last_name ILIKE $4 OR email ILIKE $5))"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM members " + where)).
		WithArgs("ACTIVE", "%30%", "%30%", "%30%", "%30%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM members " + where + " ORDER BY joined_at DESC, id ASC LIMIT 5 OFFSET 0")).
		WithArgs("ACTIVE", "%30%", "%30%", "%30%", "%30%").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"m1", "30111222", "Ana", "Paz", nil, nil, nil,
			nil, nil, "ACTIVE", now, "inst-1", now, now,
		))

	items, total, err := repo.List(context.Background(), ListFilter{
		Q: "30", Status: StatusActive, Sort: SortJoinedAt, Desc: true, Page: 1, PageSize: 5,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("unexpected result total=%d len=%d", total, len(items))
	}
	if items[0].DNI == nil || *items[0].DNI != "30111222" || items[0].Email != nil || items[0].BirthDate != nil {
		t.Fatalf("unexpected nullable mapping: %+v", items[0])
	}
	if items[0].InstitutionID == nil || *items[0].InstitutionID != "inst-1" {
		t.Fatalf("expected institution id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateMapsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	m := Member{ID: "m1", FirstName: "Ana", LastName: "Paz", Status: StatusActive}

	mock.ExpectExec("UPDATE members SET").WillReturnError(&pgconn.PgError{Code: "23505"})
	if err := repo.Update(context.Background(), m); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	mock.ExpectExec("UPDATE members SET").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Update(context.Background(), m); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
