package members

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/shared/validate"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// InstitutionLookup resolves institution summaries. It returns
// ErrInstitutionNotFound for unknown ids.
type InstitutionLookup interface {
	LookupInstitution(ctx context.Context, id string) (InstitutionRef, error)
}

// DocumentCounter counts documents attached to a member.
type DocumentCounter interface {
	CountByMember(ctx context.Context, memberID string) (int, error)
}

// Service implements member use cases.
type Service struct {
	Repo         Repo
	Institutions InstitutionLookup
	Documents    DocumentCounter
	Now          func() time.Time
}

// Row is a member with its resolved institution.
type Row struct {
	Member      Member
	Institution *InstitutionRef
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// List returns a filtered page of members. Invalid filters yield a *validate.Error.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Row, int, error) {
	issues := validate.Issues{}
	if f.Page < 1 {
		issues.Add("page", "must be a positive integer")
	}
	if f.PageSize < 1 || f.PageSize > maxPageSize {
		issues.Add("pageSize", "must be between 1 and 100")
	}
	if f.Status != "" && !f.Status.Valid() {
		issues.Add("status", "unknown status")
	}
	if _, ok := sortColumns[f.Sort]; !ok {
		issues.Add("sort", "unknown sort field")
	}
	f.InstitutionID = strings.TrimSpace(f.InstitutionID)
	if f.InstitutionID != "" {
		if _, err := uuid.Parse(f.InstitutionID); err != nil {
			issues.Add("institutionId", "must be a uuid")
		}
	}
	if err := issues.Err(); err != nil {
		return nil, 0, err
	}
	f.Q = strings.TrimSpace(f.Q)

	items, total, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	rows := make([]Row, 0, len(items))
	refs := map[string]*InstitutionRef{}
	for _, m := range items {
		row := Row{Member: m}
		if m.InstitutionID != nil {
			ref, ok := refs[*m.InstitutionID]
			if !ok {
				ref, err = s.optionalInstitution(ctx, *m.InstitutionID)
				if err != nil {
					return nil, 0, err
				}
				refs[*m.InstitutionID] = ref
			}
			row.Institution = ref
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

// Get returns a member, its institution and its document count.
func (s *Service) Get(ctx context.Context, id string) (Row, int, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Row{}, 0, err
	}
	row := Row{Member: m}
	if m.InstitutionID != nil {
		if row.Institution, err = s.optionalInstitution(ctx, *m.InstitutionID); err != nil {
			return Row{}, 0, err
		}
	}
	docs, err := s.countDocuments(ctx, id)
	if err != nil {
		return Row{}, 0, err
	}
	return row, docs, nil
}

// Create validates and stores a new member.
func (s *Service) Create(ctx context.Context, in Input) (Member, error) {
	now := s.now()
	m := Member{ID: uuid.NewString(), CreatedAt: now}
	if err := s.apply(ctx, &m, in, false); err != nil {
		return Member{}, err
	}
	if _, err := s.Repo.GetByDNI(ctx, *m.DNI); err == nil {
		return Member{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return Member{}, err
	}
	m.UpdatedAt = now
	if err := s.Repo.Create(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Update replaces the writable fields of a member.
func (s *Service) Update(ctx context.Context, id string, in Input) (Member, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	if err := s.apply(ctx, &m, in, true); err != nil {
		return Member{}, err
	}
	if other, err := s.Repo.GetByDNI(ctx, *m.DNI); err == nil && other.ID != id {
		return Member{}, ErrConflict
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Member{}, err
	}
	m.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Delete removes a member that has no documents.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return err
	}
	docs, err := s.countDocuments(ctx, id)
	if err != nil {
		return err
	}
	if docs > 0 {
		return ErrHasDocuments
	}
	return s.Repo.Delete(ctx, id)
}

// CreateBasic stores a member from the reduced socios payload. No dni is set.
func (s *Service) CreateBasic(ctx context.Context, in BasicInput) (Member, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = validate.Trimmed(in.Email)

	issues := validate.Issues{}
	if in.FirstName == "" {
		issues.Add("firstName", "required")
	}
	if in.LastName == "" {
		issues.Add("lastName", "required")
	}
	if in.Email != nil && !validate.Email(*in.Email) {
		issues.Add("email", "invalid email")
	}
	if err := issues.Err(); err != nil {
		return Member{}, err
	}

	now := s.now()
	m := Member{
		ID:        uuid.NewString(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     validate.Trimmed(in.Phone),
		Address:   validate.Trimmed(in.Address),
		Status:    StatusPendingVerification,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Patch applies a partial update.
func (s *Service) Patch(ctx context.Context, id string, p Patch) (Member, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Member{}, err
	}

	issues := validate.Issues{}
	if p.FirstName != nil {
		if v := strings.TrimSpace(*p.FirstName); v != "" {
			m.FirstName = v
		} else {
			issues.Add("firstName", "required")
		}
	}
	if p.LastName != nil {
		if v := strings.TrimSpace(*p.LastName); v != "" {
			m.LastName = v
		} else {
			issues.Add("lastName", "required")
		}
	}
	if p.Email != nil {
		m.Email = validate.Trimmed(p.Email)
		if m.Email != nil && !validate.Email(*m.Email) {
			issues.Add("email", "invalid email")
		}
	}
	if p.Phone != nil {
		m.Phone = validate.Trimmed(p.Phone)
	}
	if p.Address != nil {
		m.Address = validate.Trimmed(p.Address)
	}
	if p.Status != nil {
		st := Status(strings.ToUpper(strings.TrimSpace(*p.Status)))
		if st.Valid() {
			m.Status = st
		} else {
			issues.Add("status", "unknown status")
		}
	}
	if err := issues.Err(); err != nil {
		return Member{}, err
	}

	m.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Deactivate marks a member INACTIVE instead of deleting it.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	inactive := string(StatusInactive)
	_, err := s.Patch(ctx, id, Patch{Status: &inactive})
	return err
}

// apply validates in and copies it onto m. Full updates require an institution.
func (s *Service) apply(ctx context.Context, m *Member, in Input, requireInstitution bool) error {
	issues := validate.Issues{}

	dni := strings.TrimSpace(in.DNI)
	if dni == "" {
		issues.Add("dni", "required")
	} else if len(dni) < 6 || len(dni) > 12 {
		issues.Add("dni", "must be between 6 and 12 characters")
	}
	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		issues.Add("firstName", "required")
	}
	lastName := strings.TrimSpace(in.LastName)
	if lastName == "" {
		issues.Add("lastName", "required")
	}
	email := validate.Trimmed(in.Email)
	if email != nil && !validate.Email(*email) {
		issues.Add("email", "invalid email")
	}

	status := StatusPendingVerification
	if v := validate.Trimmed(in.Status); v != nil {
		status = Status(*v)
		if !status.Valid() {
			issues.Add("status", "unknown status")
		}
	}

	var birthDate *time.Time
	if v := validate.Trimmed(in.BirthDate); v != nil {
		t, err := parseDate(*v)
		if err != nil {
			issues.Add("birthDate", "invalid date")
		}
		birthDate = &t
	}
	joinedAt := s.now()
	if v := validate.Trimmed(in.JoinedAt); v != nil {
		t, err := parseDate(*v)
		if err != nil {
			issues.Add("joinedAt", "invalid date")
		}
		joinedAt = t
	}

	institutionID := validate.Trimmed(in.InstitutionID)
	if institutionID == nil && requireInstitution {
		issues.Add("institutionId", "required")
	}
	if err := issues.Err(); err != nil {
		return err
	}
	if institutionID != nil {
		if _, err := s.institution(ctx, *institutionID); err != nil {
			return err
		}
	}

	m.DNI = &dni
	m.FirstName = firstName
	m.LastName = lastName
	m.Email = email
	m.Phone = validate.Trimmed(in.Phone)
	m.Address = validate.Trimmed(in.Address)
	m.BirthDate = birthDate
	m.Nationality = validate.Trimmed(in.Nationality)
	m.Status = status
	m.JoinedAt = joinedAt
	m.InstitutionID = institutionID
	return nil
}

func (s *Service) institution(ctx context.Context, id string) (*InstitutionRef, error) {
	if s.Institutions == nil {
		return nil, ErrInstitutionNotFound
	}
	ref, err := s.Institutions.LookupInstitution(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *Service) optionalInstitution(ctx context.Context, id string) (*InstitutionRef, error) {
	ref, err := s.institution(ctx, id)
	if errors.Is(err, ErrInstitutionNotFound) {
		return nil, nil
	}
	return ref, err
}

func (s *Service) countDocuments(ctx context.Context, id string) (int, error) {
	if s.Documents == nil {
		return 0, nil
	}
	return s.Documents.CountByMember(ctx, id)
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", v)
}
