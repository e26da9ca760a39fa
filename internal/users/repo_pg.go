package users

import (
	"context"
	"database/sql"
	"errors"

	"docuflow/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, email, name, password_hash, github_login, avatar_url, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, name, password_hash, github_login, avatar_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.GitHubLogin,
		nullableString(user.AvatarURL),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `SELECT ` + selectColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT ` + selectColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, query, email))
}

func (r *PGRepo) UpsertGitHub(ctx context.Context, user User) (User, error) {
	const linkQuery = `
UPDATE users SET
  email = $1,
  github_login = $2,
  avatar_url = $3,
  name = CASE WHEN name = '' THEN $4 ELSE name END,
  updated_at = $5
WHERE id = (
  SELECT id FROM users
  WHERE github_login = $2 OR lower(email) = lower($1)
  ORDER BY (github_login = $2) DESC NULLS LAST
  LIMIT 1
)
RETURNING ` + selectColumns
	var out User
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var err error
		out, err = scanUser(tx.QueryRowContext(ctx, linkQuery,
			user.Email, user.GitHubLogin, nullableString(user.AvatarURL), user.Name, user.UpdatedAt,
		))
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		const insertQuery = `
INSERT INTO users (id, email, name, password_hash, github_login, avatar_url, created_at, updated_at)
VALUES ($1, $2, $3, NULL, $4, $5, $6, $7)
RETURNING ` + selectColumns
		out, err = scanUser(tx.QueryRowContext(ctx, insertQuery,
			user.ID, user.Email, user.Name, user.GitHubLogin, nullableString(user.AvatarURL), user.CreatedAt, user.UpdatedAt,
		))
		return err
	})
	if db.IsUniqueViolation(err) {
		return User{}, ErrConflict
	}
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var passwordHash, githubLogin, avatarURL sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&passwordHash,
		&githubLogin,
		&avatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	if githubLogin.Valid {
		user.GitHubLogin = &githubLogin.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
