package systemconfig

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM system_config WHERE id = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"app_name"}))

	repo := &PGRepo{DB: db}
	if _, err := repo.Get(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	cfg := Defaults()
	cfg.CreatedAt, cfg.UpdatedAt = now, now

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO system_config")).
		WithArgs(cfg.AppName, cfg.LogoURL, cfg.PrimaryColor, cfg.SecondaryColor,
			cfg.PrimaryTextColor, cfg.SecondaryTextColor, cfg.BorderRadius,
			cfg.DefaultLocale, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &PGRepo{DB: db}
	if err := repo.Save(context.Background(), cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
