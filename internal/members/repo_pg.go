package members

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"docuflow/internal/shared/storage/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{
	"id", "dni", "first_name", "last_name", "email", "phone", "address",
	"birth_date", "nationality", "status", "joined_at", "institution_id",
	"created_at", "updated_at",
}

var sortColumns = map[string]string{
	SortLastName:  "last_name",
	SortFirstName: "first_name",
	SortDNI:       "dni",
	SortJoinedAt:  "joined_at",
	SortCreatedAt: "created_at",
}

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, m Member) error {
	query, args, err := psql.Insert("members").Columns(columns...).Values(
		m.ID, m.DNI, m.FirstName, m.LastName, m.Email, m.Phone, m.Address,
		m.BirthDate, m.Nationality, string(m.Status), m.JoinedAt, m.InstitutionID,
		m.CreatedAt, m.UpdatedAt,
	).ToSql()
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, args...)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if db.IsForeignKeyViolation(err) {
		return ErrInstitutionNotFound
	}
	return err
}

func (r *PGRepo) Update(ctx context.Context, m Member) error {
	query, args, err := psql.Update("members").SetMap(map[string]any{
		"dni":            m.DNI,
		"first_name":     m.FirstName,
		"last_name":      m.LastName,
		"email":          m.Email,
		"phone":          m.Phone,
		"address":        m.Address,
		"birth_date":     m.BirthDate,
		"nationality":    m.Nationality,
		"status":         string(m.Status),
		"joined_at":      m.JoinedAt,
		"institution_id": m.InstitutionID,
		"updated_at":     m.UpdatedAt,
	}).Where(sq.Eq{"id": m.ID}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if db.IsForeignKeyViolation(err) {
		return ErrInstitutionNotFound
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Member, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *PGRepo) GetByDNI(ctx context.Context, dni string) (Member, error) {
	return r.getOne(ctx, sq.Eq{"dni": dni})
}

func (r *PGRepo) getOne(ctx context.Context, where sq.Sqlizer) (Member, error) {
	query, args, err := psql.Select(columns...).From("members").Where(where).Limit(1).ToSql()
	if err != nil {
		return Member{}, err
	}
	m, err := scanMember(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) || db.IsInvalidTextRepresentation(err) {
		return Member{}, ErrNotFound
	}
	return m, err
}

func (r *PGRepo) List(ctx context.Context, f ListFilter) ([]Member, int, error) {
	where := sq.And{}
	if f.Status != "" {
		where = append(where, sq.Eq{"status": string(f.Status)})
	}
	if f.InstitutionID != "" {
		where = append(where, sq.Eq{"institution_id": f.InstitutionID})
	}
	if f.Q != "" {
		pattern := "%" + f.Q + "%"
		or := sq.Or{
			sq.ILike{"first_name": pattern},
			sq.ILike{"last_name": pattern},
			sq.ILike{"email": pattern},
		}
		if !f.SkipDNI {
			or = append(sq.Or{sq.Like{"dni": pattern}}, or...)
		}
		where = append(where, or)
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("members").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = "last_name"
	}
	dir := " ASC"
	if f.Desc {
		dir = " DESC"
	}
	query, args, err := psql.Select(columns...).From("members").Where(where).
		OrderBy(col+dir, "id ASC").
		Limit(uint64(f.PageSize)).
		Offset(uint64((f.Page - 1) * f.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrHasDocuments
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) CountByInstitution(ctx context.Context, institutionID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM members WHERE institution_id = $1`, institutionID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (Member, error) {
	var m Member
	var dni, email, phone, address, nationality, institutionID sql.NullString
	var birthDate sql.NullTime
	var status string
	err := row.Scan(
		&m.ID,
		&dni,
		&m.FirstName,
		&m.LastName,
		&email,
		&phone,
		&address,
		&birthDate,
		&nationality,
		&status,
		&m.JoinedAt,
		&institutionID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return Member{}, err
	}
	m.Status = Status(status)
	m.DNI = nullString(dni)
	m.Email = nullString(email)
	m.Phone = nullString(phone)
	m.Address = nullString(address)
	m.Nationality = nullString(nationality)
	m.InstitutionID = nullString(institutionID)
	if birthDate.Valid {
		t := birthDate.Time
		m.BirthDate = &t
	}
	return m, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

var _ Repo = (*PGRepo)(nil)
