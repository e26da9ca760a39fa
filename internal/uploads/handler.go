package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docuflow/internal/documents"
	"docuflow/internal/extract"
	"docuflow/internal/intake"
	"docuflow/internal/jobs"
	"docuflow/internal/shared/metrics"
	"docuflow/internal/shared/server/respond"
	"docuflow/internal/shared/telemetry"
)

const (
	defaultMaxBytes = 10 << 20
	receiptMaxBytes = 10 << 20

	namespaceDocuments = "documents"
	namespaceReceipts  = "recibos"
)

var contentTypeOrder = []string{"application/pdf", "image/jpeg", "image/png", "text/plain"}

var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"text/plain":      {},
}

var receiptContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

// Handler serves the upload endpoints.
type Handler struct {
	Documents *documents.Service
	Jobs      *jobs.Service
	Intake    *intake.Processor
	// MaxBytes bounds /upload and /uploads; 0 means 10 MB.
	MaxBytes int64
	// MaxAttempts is given to the OCR job created by an async upload.
	MaxAttempts int
}

// RegisterRoutes attaches upload routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.POST("/uploads", h.uploadSync)
	rg.POST("/recibos/upload", h.uploadReceipt)
}

func (h *Handler) maxBytes() int64 {
	if h.MaxBytes > 0 {
		return h.MaxBytes
	}
	return defaultMaxBytes
}

type uploadedDocument struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mimeType"`
	UploadedAt  time.Time `json:"uploadedAt"`
	JobEnqueued bool      `json:"jobEnqueued"`
}

type uploadResponse struct {
	Success  bool             `json:"success"`
	Document uploadedDocument `json:"document"`
}

type syncResponse struct {
	Success    bool           `json:"success"`
	DocumentID string         `json:"documentId"`
	Type       documents.Type `json:"type"`
	Result     any            `json:"result"`
}

type receiptResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	FilePath   string `json:"filePath"`
	Size       int64  `json:"size"`
	Type       string `json:"type"`
}

// upload stores the file and hands it to the pipeline through an OCR job.
func (h *Handler) upload(c *gin.Context) {
	fh, mimeType, ok := h.formFile(c, allowedContentTypes, h.maxBytes(), http.StatusRequestEntityTooLarge)
	if !ok {
		return
	}
	memberID, institutionID, ok := ownerFields(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	f, err := fh.Open()
	if err != nil {
		respond.Internal(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	obj, err := h.Documents.Store.Save(ctx, namespaceDocuments, fh.Filename, f)
	if err != nil {
		respond.Internal(c, fmt.Errorf("store upload: %w", err))
		return
	}
	doc, err := h.Documents.Register(ctx, documents.NewDocument{
		Object:        obj,
		OriginalName:  fh.Filename,
		MimeType:      mimeType,
		MemberID:      memberID,
		InstitutionID: institutionID,
	})
	if err != nil {
		h.discard(c, obj.Key)
		registerFailed(c, err)
		return
	}
	c.Set("documentId", doc.ID)
	metrics.IncUpload("upload")

	enqueued := true
	job, err := h.Jobs.Enqueue(ctx, jobs.EnqueueOptions{
		Type: jobs.TypeOCR,
		Payload: jobs.OCRPayload{
			DocumentID: doc.ID,
			SHA256:     doc.SHA256,
			Filename:   doc.OriginalName,
			MimeType:   doc.MimeType,
		},
		Priority:    jobs.StagePriority,
		MaxAttempts: h.MaxAttempts,
		DocumentID:  &doc.ID,
	})
	if err != nil {
		enqueued = false
		telemetry.Error("upload.enqueue_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
			"request_id":  c.GetString("requestId"),
		})
	} else {
		c.Set("jobId", job.ID)
	}

	respond.OK(c, uploadResponse{
		Success: true,
		Document: uploadedDocument{
			ID:          doc.ID,
			Filename:    doc.OriginalName,
			Size:        doc.SizeBytes,
			MimeType:    doc.MimeType,
			UploadedAt:  doc.UploadedAt,
			JobEnqueued: enqueued,
		},
	})
}

// uploadSync extracts, classifies and parses inside the request.
func (h *Handler) uploadSync(c *gin.Context) {
	fh, mimeType, ok := h.formFile(c, allowedContentTypes, h.maxBytes(), http.StatusRequestEntityTooLarge)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	data, err := readAll(fh)
	if err != nil {
		respond.Internal(c, err)
		return
	}

	obj, err := h.Documents.Store.Save(ctx, namespaceDocuments, fh.Filename, bytes.NewReader(data))
	if err != nil {
		respond.Internal(c, fmt.Errorf("store upload: %w", err))
		return
	}

	res, err := h.Intake.Extractor.Extract(ctx, data, mimeType, fh.Filename)
	if err != nil {
		h.discard(c, obj.Key)
		c.Set("internalError", err.Error())
		respond.Error(c, http.StatusInternalServerError, "processing_failed", "Error processing file", gin.H{"details": err.Error()})
		return
	}

	doc, err := h.Documents.Register(ctx, documents.NewDocument{
		Object:       obj,
		OriginalName: fh.Filename,
		MimeType:     mimeType,
	})
	if err != nil {
		h.discard(c, obj.Key)
		registerFailed(c, err)
		return
	}
	c.Set("documentId", doc.ID)
	metrics.IncUpload("uploads")

	extracted, err := h.Intake.Apply(ctx, doc, res)
	if err != nil {
		respond.Internal(c, err)
		return
	}
	parsed, err := h.Intake.Parse(ctx, doc.ID, extracted.Type, extracted.Text)
	if err != nil {
		respond.Internal(c, fmt.Errorf("parse: %w", err))
		return
	}

	respond.OK(c, syncResponse{
		Success:    true,
		DocumentID: doc.ID,
		Type:       extracted.Type,
		Result:     parsed.Fields,
	})
}

// uploadReceipt stores a scanned receipt without processing it.
func (h *Handler) uploadReceipt(c *gin.Context) {
	fh, mimeType, ok := h.formFile(c, receiptContentTypes, receiptMaxBytes, http.StatusBadRequest)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	f, err := fh.Open()
	if err != nil {
		respond.Internal(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	obj, err := h.Documents.Store.Save(ctx, namespaceReceipts, fh.Filename, f)
	if err != nil {
		respond.Internal(c, fmt.Errorf("store upload: %w", err))
		return
	}
	doc, err := h.Documents.Register(ctx, documents.NewDocument{
		Object:       obj,
		OriginalName: fh.Filename,
		MimeType:     mimeType,
		Metadata:     map[string]any{"source": "recibos"},
	})
	if err != nil {
		h.discard(c, obj.Key)
		registerFailed(c, err)
		return
	}
	c.Set("documentId", doc.ID)
	metrics.IncUpload("recibos")

	respond.OK(c, receiptResponse{
		Success:    true,
		DocumentID: doc.ID,
		FileName:   fh.Filename,
		FilePath:   "/" + obj.Key,
		Size:       doc.SizeBytes,
		Type:       mimeType,
	})
}

// formFile reads the "file" part and checks its type and size. tooLarge is
// the status used when the size limit is exceeded.
func (h *Handler) formFile(c *gin.Context, allowed map[string]struct{}, limit int64, tooLarge int) (*multipart.FileHeader, string, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		respond.BadRequest(c, "No file uploaded", nil)
		return nil, "", false
	}
	if fh.Size <= 0 {
		respond.BadRequest(c, "No file uploaded", nil)
		return nil, "", false
	}
	mimeType := extract.NormalizeMimeType(fh.Header.Get("Content-Type"), fh.Filename, nil)
	if _, ok := allowed[mimeType]; !ok {
		respond.BadRequest(c, fmt.Sprintf("File type %s is not allowed", mimeType), gin.H{"allowed": allowedList(allowed)})
		return nil, "", false
	}
	if fh.Size > limit {
		code := "file_too_large"
		if tooLarge == http.StatusBadRequest {
			code = "validation_error"
		}
		respond.Error(c, tooLarge, code, fmt.Sprintf("File too large. Max size: %dMB", limit>>20), nil)
		return nil, "", false
	}
	return fh, mimeType, true
}

// ownerFields reads the optional memberId and institutionId form fields.
func ownerFields(c *gin.Context) (*string, *string, bool) {
	var out [2]*string
	for i, name := range []string{"memberId", "institutionId"} {
		v := strings.TrimSpace(c.PostForm(name))
		if v == "" {
			continue
		}
		if _, err := uuid.Parse(v); err != nil {
			respond.BadRequest(c, name+" must be a valid id", gin.H{name: "invalid id"})
			return nil, nil, false
		}
		out[i] = &v
	}
	return out[0], out[1], true
}

// registerFailed answers a failed document insert. A member or institution
// id that names no row is the client's mistake.
func registerFailed(c *gin.Context, err error) {
	if errors.Is(err, documents.ErrOwnerNotFound) {
		respond.BadRequest(c, "memberId or institutionId does not exist", gin.H{"owner": "not found"})
		return
	}
	respond.Internal(c, fmt.Errorf("register document: %w", err))
}

func (h *Handler) discard(c *gin.Context, key string) {
	if err := h.Documents.Store.Delete(context.WithoutCancel(c.Request.Context()), key); err != nil {
		telemetry.Warn("upload.cleanup_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

// allowedList returns the members of allowed in a stable order.
func allowedList(allowed map[string]struct{}) []string {
	out := make([]string, 0, len(allowed))
	for _, k := range contentTypeOrder {
		if _, ok := allowed[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
