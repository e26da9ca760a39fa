package documents

import "time"

type memberSummary struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	DNI       *string `json:"dni"`
}

type extractionResponse struct {
	ID         string  `json:"id"`
	FieldName  string  `json:"fieldName"`
	FieldValue string  `json:"fieldValue"`
	PageIndex  *int    `json:"pageIndex,omitempty"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence"`
}

type jobSummary struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	LastError *string   `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID            string               `json:"id"`
	OriginalName  string               `json:"originalName"`
	MimeType      string               `json:"mimeType"`
	Size          int64                `json:"size"`
	SHA256        string               `json:"sha256"`
	Type          Type                 `json:"type"`
	MemberID      *string              `json:"memberId"`
	InstitutionID *string              `json:"institutionId"`
	Metadata      map[string]any       `json:"metadata"`
	UploadedAt    time.Time            `json:"uploadedAt"`
	ProcessedAt   *time.Time           `json:"processedAt"`
	Member        *memberSummary       `json:"member"`
	Extractions   []extractionResponse `json:"extractions"`
	Jobs          []jobSummary         `json:"jobs"`
	Records       any                  `json:"records,omitempty"`
}

type listMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

type listResponse struct {
	Data []DocumentResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

// toResponse renders d. List rows carry only the short extraction fields.
func toResponse(d Detail, full bool) DocumentResponse {
	doc := d.Document
	out := DocumentResponse{
		ID:            doc.ID,
		OriginalName:  doc.OriginalName,
		MimeType:      doc.MimeType,
		Size:          doc.SizeBytes,
		SHA256:        doc.SHA256,
		Type:          doc.Type,
		MemberID:      doc.MemberID,
		InstitutionID: doc.InstitutionID,
		Metadata:      doc.Metadata,
		UploadedAt:    doc.UploadedAt,
		ProcessedAt:   doc.ProcessedAt,
		Extractions:   make([]extractionResponse, 0, len(d.Extractions)),
		Jobs:          make([]jobSummary, 0, len(d.Jobs)),
		Records:       d.Records,
	}
	if d.Member != nil {
		out.Member = &memberSummary{
			ID:        d.Member.ID,
			FirstName: d.Member.FirstName,
			LastName:  d.Member.LastName,
			DNI:       d.Member.DNI,
		}
	}
	for _, e := range d.Extractions {
		er := extractionResponse{
			ID:         e.ID,
			FieldName:  e.FieldName,
			FieldValue: e.FieldValue,
			Confidence: e.Confidence,
		}
		if full {
			er.PageIndex = e.PageIndex
			er.Source = e.Source
		}
		out.Extractions = append(out.Extractions, er)
	}
	for _, j := range d.Jobs {
		out.Jobs = append(out.Jobs, jobSummary(j))
	}
	return out
}
