package institutions

import (
	"context"
	"errors"
	"testing"
	"time"

	"docuflow/internal/shared/validate"
)

type fixedCounter map[string]int

func (f fixedCounter) CountByInstitution(ctx context.Context, id string) (int, error) {
	return f[id], nil
}

func newTestService() *Service {
	now := time.Date(2026, time.February, 3, 9, 0, 0, 0, time.UTC)
	return &Service{
		Repo:      NewMemoryRepo(),
		Members:   fixedCounter{},
		Documents: fixedCounter{},
		Now:       func() time.Time { return now },
	}
}

func strPtr(s string) *string { return &s }

func TestCreateValidatesAndDefaultsActive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: " ", CUIT: "30123456789", Email: strPtr("nope")})
	var verr *validate.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "cuit", "email"} {
		if _, ok := verr.Issues[field]; !ok {
			t.Fatalf("expected issue for %s", field)
		}
	}

	inst, err := svc.Create(ctx, Input{Name: "Hospital Central", CUIT: "30-12345678-9", Email: strPtr("  ")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !inst.IsActive {
		t.Fatalf("expected isActive default true")
	}
	if inst.Email != nil {
		t.Fatalf("expected blank email to be stored as nil")
	}

	if _, err := svc.Create(ctx, Input{Name: "Otro", CUIT: "30-12345678-9"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateRejectsCUITOfAnotherInstitution(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, Input{Name: "A", CUIT: "30-11111111-1"})
	b, _ := svc.Create(ctx, Input{Name: "B", CUIT: "30-22222222-2"})

	if _, err := svc.Update(ctx, b.ID, Input{Name: "B", CUIT: a.CUIT}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	inactive := false
	updated, err := svc.Update(ctx, b.ID, Input{Name: "B2", CUIT: b.CUIT, IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update own cuit: %v", err)
	}
	if updated.Name != "B2" || updated.IsActive {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if _, err := svc.Update(ctx, "missing", Input{Name: "X", CUIT: "30-33333333-3"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBlockedByDependents(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	inst, _ := svc.Create(ctx, Input{Name: "A", CUIT: "30-11111111-1"})
	svc.Members = fixedCounter{inst.ID: 2}

	if err := svc.Delete(ctx, inst.ID); !errors.Is(err, ErrHasDependents) {
		t.Fatalf("expected ErrHasDependents, got %v", err)
	}
	svc.Members = fixedCounter{}
	if err := svc.Delete(ctx, inst.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, inst.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSearchesAndPaginates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, _ = svc.Create(ctx, Input{Name: "Clínica Norte", CUIT: "30-11111111-1"})
	_, _ = svc.Create(ctx, Input{Name: "Banco Sur", CUIT: "30-22222222-2", Email: strPtr("contacto@bancosur.com")})
	_, _ = svc.Create(ctx, Input{Name: "Asociación Este", CUIT: "30-33333333-3"})

	items, total, err := svc.List(ctx, ListFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].Name != "Asociación Este" {
		t.Fatalf("unexpected page: total=%d items=%+v", total, items)
	}

	items, total, _ = svc.List(ctx, ListFilter{Search: "BANCOSUR"})
	if total != 1 || items[0].Name != "Banco Sur" {
		t.Fatalf("expected email match, got total=%d", total)
	}
}
