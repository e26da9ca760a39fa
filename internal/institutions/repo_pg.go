package institutions

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"docuflow/internal/shared/storage/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{"id", "name", "cuit", "address", "phone", "email", "website", "is_active", "created_at", "updated_at"}

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, inst Institution) error {
	const query = `
INSERT INTO institutions (id, name, cuit, address, phone, email, website, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.DB.ExecContext(ctx, query,
		inst.ID, inst.Name, inst.CUIT,
		inst.Address, inst.Phone, inst.Email, inst.Website,
		inst.IsActive, inst.CreatedAt, inst.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) Update(ctx context.Context, inst Institution) error {
	const query = `
UPDATE institutions
SET name = $2, cuit = $3, address = $4, phone = $5, email = $6, website = $7, is_active = $8, updated_at = $9
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		inst.ID, inst.Name, inst.CUIT,
		inst.Address, inst.Phone, inst.Email, inst.Website,
		inst.IsActive, inst.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Institution, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *PGRepo) GetByCUIT(ctx context.Context, cuit string) (Institution, error) {
	return r.getOne(ctx, sq.Eq{"cuit": cuit})
}

func (r *PGRepo) getOne(ctx context.Context, where sq.Sqlizer) (Institution, error) {
	query, args, err := psql.Select(columns...).From("institutions").Where(where).Limit(1).ToSql()
	if err != nil {
		return Institution{}, err
	}
	inst, err := scanInstitution(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
		return Institution{}, ErrNotFound
	}
	return inst, err
}

func (r *PGRepo) List(ctx context.Context, f ListFilter) ([]Institution, int, error) {
	var where sq.Sqlizer = sq.Expr("TRUE")
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		where = sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"cuit": pattern},
			sq.ILike{"email": pattern},
		}
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("institutions").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := psql.Select(columns...).From("institutions").Where(where).
		OrderBy("name ASC").
		Limit(uint64(f.Limit)).
		Offset(uint64((f.Page - 1) * f.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Institution{}
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inst)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM institutions WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrHasDependents
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstitution(row rowScanner) (Institution, error) {
	var inst Institution
	var address, phone, email, website sql.NullString
	err := row.Scan(
		&inst.ID,
		&inst.Name,
		&inst.CUIT,
		&address,
		&phone,
		&email,
		&website,
		&inst.IsActive,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return Institution{}, err
	}
	inst.Address = nullString(address)
	inst.Phone = nullString(phone)
	inst.Email = nullString(email)
	inst.Website = nullString(website)
	return inst, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

var _ Repo = (*PGRepo)(nil)
