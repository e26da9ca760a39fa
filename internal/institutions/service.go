package institutions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/shared/validate"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// DependentCounter counts records that reference an institution.
type DependentCounter interface {
	CountByInstitution(ctx context.Context, institutionID string) (int, error)
}

// Service implements institution use cases.
type Service struct {
	Repo      Repo
	Members   DependentCounter
	Documents DependentCounter
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// List returns a page of institutions ordered by name.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Institution, int, error) {
	return s.Repo.List(ctx, f.normalized())
}

// normalized clamps paging to the range the repository serves.
func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Get returns an institution with its dependent counts.
func (s *Service) Get(ctx context.Context, id string) (Institution, Counts, error) {
	inst, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Institution{}, Counts{}, err
	}
	counts, err := s.counts(ctx, id)
	if err != nil {
		return Institution{}, Counts{}, err
	}
	return inst, counts, nil
}

// Create validates and stores a new institution.
func (s *Service) Create(ctx context.Context, in Input) (Institution, error) {
	in = normalize(in)
	if err := validateInput(in); err != nil {
		return Institution{}, err
	}
	if _, err := s.Repo.GetByCUIT(ctx, in.CUIT); err == nil {
		return Institution{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return Institution{}, err
	}

	now := s.now()
	inst := Institution{
		ID:        uuid.NewString(),
		Name:      in.Name,
		CUIT:      in.CUIT,
		Address:   in.Address,
		Phone:     in.Phone,
		Email:     in.Email,
		Website:   in.Website,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.IsActive != nil {
		inst.IsActive = *in.IsActive
	}
	if err := s.Repo.Create(ctx, inst); err != nil {
		return Institution{}, err
	}
	return inst, nil
}

// Update replaces the writable fields of an institution.
func (s *Service) Update(ctx context.Context, id string, in Input) (Institution, error) {
	in = normalize(in)
	if err := validateInput(in); err != nil {
		return Institution{}, err
	}
	inst, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Institution{}, err
	}
	if other, err := s.Repo.GetByCUIT(ctx, in.CUIT); err == nil && other.ID != id {
		return Institution{}, ErrConflict
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Institution{}, err
	}

	inst.Name = in.Name
	inst.CUIT = in.CUIT
	inst.Address = in.Address
	inst.Phone = in.Phone
	inst.Email = in.Email
	inst.Website = in.Website
	if in.IsActive != nil {
		inst.IsActive = *in.IsActive
	}
	inst.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, inst); err != nil {
		return Institution{}, err
	}
	return inst, nil
}

// Delete removes an institution that no member or document references.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return err
	}
	counts, err := s.counts(ctx, id)
	if err != nil {
		return err
	}
	if counts.Members > 0 || counts.Documents > 0 {
		return ErrHasDependents
	}
	return s.Repo.Delete(ctx, id)
}

func (s *Service) counts(ctx context.Context, id string) (Counts, error) {
	var c Counts
	var err error
	if s.Members != nil {
		if c.Members, err = s.Members.CountByInstitution(ctx, id); err != nil {
			return Counts{}, err
		}
	}
	if s.Documents != nil {
		if c.Documents, err = s.Documents.CountByInstitution(ctx, id); err != nil {
			return Counts{}, err
		}
	}
	return c, nil
}

func normalize(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.CUIT = strings.TrimSpace(in.CUIT)
	in.Address = validate.Trimmed(in.Address)
	in.Phone = validate.Trimmed(in.Phone)
	in.Email = validate.Trimmed(in.Email)
	in.Website = validate.Trimmed(in.Website)
	return in
}

func validateInput(in Input) error {
	issues := validate.Issues{}
	if in.Name == "" {
		issues.Add("name", "required")
	}
	if in.CUIT == "" {
		issues.Add("cuit", "required")
	} else if !validate.CUIT(in.CUIT) {
		issues.Add("cuit", "must match NN-NNNNNNNN-N")
	}
	if in.Email != nil && !validate.Email(*in.Email) {
		issues.Add("email", "invalid email")
	}
	if in.Website != nil && !validate.URL(*in.Website) {
		issues.Add("website", "invalid url")
	}
	return issues.Err()
}
