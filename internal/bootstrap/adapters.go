package bootstrap

import (
	"context"
	"errors"

	"docuflow/internal/documents"
	"docuflow/internal/institutions"
	"docuflow/internal/jobs"
	"docuflow/internal/members"
)

// institutionLookup lets members resolve the institution they belong to.
type institutionLookup struct {
	repo institutions.Repo
}

func (l institutionLookup) LookupInstitution(ctx context.Context, id string) (members.InstitutionRef, error) {
	inst, err := l.repo.GetByID(ctx, id)
	if errors.Is(err, institutions.ErrNotFound) {
		return members.InstitutionRef{}, members.ErrInstitutionNotFound
	}
	if err != nil {
		return members.InstitutionRef{}, err
	}
	return members.InstitutionRef{ID: inst.ID, Name: inst.Name, CUIT: inst.CUIT}, nil
}

// memberLookup resolves the member summary embedded in document responses.
type memberLookup struct {
	repo members.Repo
}

func (l memberLookup) LookupMember(ctx context.Context, id string) (documents.MemberSummary, error) {
	m, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return documents.MemberSummary{}, err
	}
	return documents.MemberSummary{ID: m.ID, FirstName: m.FirstName, LastName: m.LastName, DNI: m.DNI}, nil
}

type jobLister struct {
	svc *jobs.Service
}

func (l jobLister) JobsForDocument(ctx context.Context, documentID string) ([]documents.JobSummary, error) {
	items, err := l.svc.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	out := make([]documents.JobSummary, 0, len(items))
	for _, j := range items {
		out = append(out, documents.JobSummary{
			ID:        j.ID,
			Type:      string(j.Type),
			Status:    string(j.Status),
			LastError: j.LastError,
			CreatedAt: j.CreatedAt,
		})
	}
	return out, nil
}

// documentRefs feeds job listings from the in-memory document repo.
func documentRefs(repo *documents.MemoryRepo) func(id string) (jobs.DocumentRef, bool) {
	return func(id string) (jobs.DocumentRef, bool) {
		doc, err := repo.GetByID(context.Background(), id)
		if err != nil {
			return jobs.DocumentRef{}, false
		}
		return jobs.DocumentRef{ID: doc.ID, OriginalName: doc.OriginalName, MimeType: doc.MimeType}, true
	}
}
