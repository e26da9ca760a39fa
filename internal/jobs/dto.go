package jobs

import (
	"encoding/json"
	"time"
)

type enqueueRequest struct {
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Priority    int             `json:"priority"`
	MaxAttempts int             `json:"maxAttempts"`
	ScheduledAt *time.Time      `json:"scheduledAt"`
	DocumentID  *string         `json:"documentId"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type documentResponse struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
}

// JobResponse is the outward-facing representation of a job.
type JobResponse struct {
	ID          string            `json:"id"`
	Type        Type              `json:"type"`
	Status      Status            `json:"status"`
	Payload     json.RawMessage   `json:"payload"`
	Result      json.RawMessage   `json:"result"`
	Metrics     json.RawMessage   `json:"metrics"`
	Priority    int               `json:"priority"`
	Attempts    int               `json:"attempts"`
	MaxAttempts int               `json:"maxAttempts"`
	LastError   *string           `json:"lastError"`
	ScheduledAt *time.Time        `json:"scheduledAt"`
	LockedAt    *time.Time        `json:"lockedAt"`
	LockedBy    *string           `json:"lockedBy"`
	StartedAt   *time.Time        `json:"startedAt"`
	FinishedAt  *time.Time        `json:"finishedAt"`
	DocumentID  *string           `json:"documentId"`
	Document    *documentResponse `json:"document,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type listResponse struct {
	Items []JobResponse `json:"items"`
	Total int           `json:"total"`
	Skip  int           `json:"skip"`
	Take  int           `json:"take"`
}

func toResponse(j Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		Payload:     rawOrNull(j.Payload),
		Result:      rawOrNull(j.Result),
		Metrics:     rawOrNull(j.Metrics),
		Priority:    j.Priority,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		LastError:   j.LastError,
		ScheduledAt: j.ScheduledAt,
		LockedAt:    j.LockedAt,
		LockedBy:    j.LockedBy,
		StartedAt:   j.StartedAt,
		FinishedAt:  j.FinishedAt,
		DocumentID:  j.DocumentID,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

func toListedResponse(l Listed) JobResponse {
	out := toResponse(l.Job)
	if l.Document != nil {
		out.Document = &documentResponse{ID: l.Document.ID, OriginalName: l.Document.OriginalName, MimeType: l.Document.MimeType}
	}
	return out
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
