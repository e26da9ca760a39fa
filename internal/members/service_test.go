package members

import (
	"context"
	"errors"
	"testing"
	"time"

	"docuflow/internal/shared/validate"
)

type institutionMap map[string]InstitutionRef

func (m institutionMap) LookupInstitution(ctx context.Context, id string) (InstitutionRef, error) {
	ref, ok := m[id]
	if !ok {
		return InstitutionRef{}, ErrInstitutionNotFound
	}
	return ref, nil
}

type docCounter map[string]int

func (d docCounter) CountByMember(ctx context.Context, id string) (int, error) {
	return d[id], nil
}

func newTestService() *Service {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return &Service{
		Repo:         NewMemoryRepo(),
		Institutions: institutionMap{"inst-1": {ID: "inst-1", Name: "Hospital Central", CUIT: "30-12345678-9"}},
		Documents:    docCounter{},
		Now:          func() time.Time { return now },
	}
}

func strPtr(s string) *string { return &s }

func TestCreateAppliesDefaultsAndChecksInstitution(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{DNI: "123", FirstName: "Ana", Status: strPtr("BOGUS")})
	var verr *validate.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"dni", "lastName", "status"} {
		if _, ok := verr.Issues[field]; !ok {
			t.Fatalf("expected issue for %s, got %v", field, verr.Issues)
		}
	}

	if _, err := svc.Create(ctx, Input{DNI: "30111222", FirstName: "Ana", LastName: "Paz", InstitutionID: strPtr("nope")}); !errors.Is(err, ErrInstitutionNotFound) {
		t.Fatalf("expected ErrInstitutionNotFound, got %v", err)
	}

	m, err := svc.Create(ctx, Input{DNI: "30111222", FirstName: "Ana", LastName: "Paz", InstitutionID: strPtr("inst-1"), BirthDate: strPtr("1990-05-17")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Status != StatusPendingVerification {
		t.Fatalf("expected default status, got %s", m.Status)
	}
	if !m.JoinedAt.Equal(svc.now()) {
		t.Fatalf("expected joinedAt to default to now, got %v", m.JoinedAt)
	}
	if m.BirthDate == nil || m.BirthDate.Year() != 1990 {
		t.Fatalf("unexpected birth date %v", m.BirthDate)
	}

	if _, err := svc.Create(ctx, Input{DNI: "30111222", FirstName: "Otra", LastName: "Persona"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateRequiresInstitution(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	m, _ := svc.Create(ctx, Input{DNI: "30111222", FirstName: "Ana", LastName: "Paz"})
	other, _ := svc.Create(ctx, Input{DNI: "30999888", FirstName: "Luis", LastName: "Gil"})

	_, err := svc.Update(ctx, m.ID, Input{DNI: "30111222", FirstName: "Ana", LastName: "Paz"})
	var verr *validate.Error
	if !errors.As(err, &verr) || verr.Issues["institutionId"] == "" {
		t.Fatalf("expected institutionId issue, got %v", err)
	}
	if _, err := svc.Update(ctx, other.ID, Input{DNI: "30111222", FirstName: "Luis", LastName: "Gil", InstitutionID: strPtr("inst-1")}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	updated, err := svc.Update(ctx, m.ID, Input{DNI: "30111222", FirstName: "Ana María", LastName: "Paz", InstitutionID: strPtr("inst-1"), Status: strPtr("ACTIVE")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FirstName != "Ana María" || updated.Status != StatusActive || updated.InstitutionID == nil {
		t.Fatalf("unexpected update: %+v", updated)
	}
}

func TestListFiltersSortsAndResolvesInstitution(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, _ = svc.Create(ctx, Input{DNI: "30111222", FirstName: "Ana", LastName: "Zapata", InstitutionID: strPtr("inst-1")})
	_, _ = svc.Create(ctx, Input{DNI: "28444555", FirstName: "Bruno", LastName: "Alvarez", Email: strPtr("bruno@example.com")})
	_, _ = svc.Create(ctx, Input{DNI: "40111000", FirstName: "Carla", LastName: "Mendez", Status: strPtr("ACTIVE")})

	rows, total, err := svc.List(ctx, ListFilter{Sort: SortLastName, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || rows[0].Member.LastName != "Alvarez" || rows[2].Member.LastName != "Zapata" {
		t.Fatalf("unexpected order: %+v", rows)
	}
	if rows[2].Institution == nil || rows[2].Institution.Name != "Hospital Central" {
		t.Fatalf("expected institution summary on row")
	}

	rows, total, _ = svc.List(ctx, ListFilter{Q: "111", Sort: SortDNI, Desc: true, Page: 1, PageSize: 10})
	if total != 2 || *rows[0].Member.DNI != "40111000" {
		t.Fatalf("unexpected dni search result: total=%d", total)
	}
	rows, total, _ = svc.List(ctx, ListFilter{Q: "111", SkipDNI: true, Sort: SortDNI, Page: 1, PageSize: 10})
	if total != 0 || len(rows) != 0 {
		t.Fatalf("expected no matches without dni search, got %d", total)
	}

	_, _, err = svc.List(ctx, ListFilter{Sort: "edad", Status: "ZOMBIE", Page: 0, PageSize: 500})
	var verr *validate.Error
	if !errors.As(err, &verr) || len(verr.Issues) != 4 {
		t.Fatalf("expected four issues, got %v", err)
	}
}

func TestDeleteBlockedByDocuments(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	m, _ := svc.Create(ctx, Input{DNI: "30111222", FirstName: "Ana", LastName: "Paz"})
	svc.Documents = docCounter{m.ID: 1}
	if err := svc.Delete(ctx, m.ID); !errors.Is(err, ErrHasDocuments) {
		t.Fatalf("expected ErrHasDocuments, got %v", err)
	}
	svc.Documents = docCounter{}
	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSociosBasicCreatePatchAndDeactivate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.CreateBasic(ctx, BasicInput{FirstName: "Ana", LastName: "Paz", Email: strPtr("ana@example.com"), Phone: strPtr("  ")})
	if err != nil {
		t.Fatalf("CreateBasic: %v", err)
	}
	if a.DNI != nil || a.Phone != nil {
		t.Fatalf("expected nil dni and phone, got %+v", a)
	}
	b, _ := svc.CreateBasic(ctx, BasicInput{FirstName: "Luis", LastName: "Gil"})

	if _, err := svc.Patch(ctx, b.ID, Patch{Email: strPtr("ana@example.com")}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
	patched, err := svc.Patch(ctx, a.ID, Patch{Email: strPtr(""), Address: strPtr("Calle 1")})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched.Email != nil || patched.Address == nil || patched.FirstName != "Ana" {
		t.Fatalf("unexpected patch result: %+v", patched)
	}
	if _, err := svc.Patch(ctx, "missing", Patch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := svc.Deactivate(ctx, a.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	row, _, _ := svc.Get(ctx, a.ID)
	if row.Member.Status != StatusInactive {
		t.Fatalf("expected INACTIVE, got %s", row.Member.Status)
	}
}
