package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legaldrishti/backend/internal/models"
	"github.com/legaldrishti/backend/internal/pipeline"
	"github.com/legaldrishti/backend/internal/queue"
	"github.com/legaldrishti/backend/internal/storage"
)

const maxUploadBytes = 64 << 20

type DocumentHandler struct {
	svc   *pipeline.Service
	blobs storage.Storage
	queue *queue.Client
}

func NewDocumentHandler(svc *pipeline.Service, blobs storage.Storage, qc *queue.Client) *DocumentHandler {
	return &DocumentHandler{svc: svc, blobs: blobs, queue: qc}
}

// Upload receives the file, stores the blob, registers the document, and
// enqueues the extraction draft job.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file required")
		return
	}
	defer file.Close()

	fileType := strings.TrimPrefix(strings.ToLower(path.Ext(header.Filename)), ".")
	if fileType == "" {
		badRequest(w, "file has no extension")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeServiceError(w, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) > maxUploadBytes {
		badRequest(w, "file too large")
		return
	}

	sum := sha256.Sum256(data)
	docID := uuid.New()
	blobPath := fmt.Sprintf("documents/%s/%s", docID, header.Filename)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension("." + fileType)
	}
	if err := h.blobs.Upload(r.Context(), blobPath, bytes.NewReader(data), contentType); err != nil {
		writeServiceError(w, fmt.Errorf("store blob: %w", err))
		return
	}

	user := currentUser(r)
	priority, _ := strconv.Atoi(r.FormValue("priority"))
	year, _ := strconv.Atoi(r.FormValue("year"))

	doc, err := h.svc.CreateDocument(r.Context(), pipeline.CreateDocumentInput{
		OriginalFilename: header.Filename,
		FilePath:         blobPath,
		FileType:         fileType,
		FileSize:         int64(len(data)),
		FileHash:         hex.EncodeToString(sum[:]),
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		Category:         r.FormValue("category"),
		Subcategory:      r.FormValue("subcategory"),
		Jurisdiction:     r.FormValue("jurisdiction"),
		Year:             year,
		Language:         r.FormValue("language"),
		Priority:         priority,
		UploadedByID:     user.ID,
	})
	if err != nil {
		if derr := h.blobs.Delete(r.Context(), blobPath); derr != nil {
			slog.Warn("orphan blob left after failed create", "path", blobPath, "error", derr)
		}
		writeServiceError(w, err)
		return
	}

	if err := h.queue.EnqueueDocumentExtract(queue.DocumentExtractPayload{
		DocumentID:  doc.ID,
		RequestedBy: user.ID,
	}); err != nil {
		slog.Error("failed to enqueue extraction", "document_id", doc.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	docs, total, err := h.svc.ListDocuments(r.Context(), pipeline.DocumentFilter{
		Status:   models.DocumentStatus(q.Get("status")),
		Step:     models.Step(q.Get("step")),
		Category: q.Get("category"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"count":     len(docs),
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid document ID")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid document ID")
		return
	}

	var req struct {
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		Category     *string `json:"category"`
		Subcategory  *string `json:"subcategory"`
		Jurisdiction *string `json:"jurisdiction"`
		Year         *int    `json:"year"`
		Language     *string `json:"language"`
		Priority     *int    `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	doc, err := h.svc.UpdateDocument(r.Context(), id, pipeline.UpdateDocumentInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Subcategory:  req.Subcategory,
		Jurisdiction: req.Jurisdiction,
		Year:         req.Year,
		Language:     req.Language,
		Priority:     req.Priority,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid document ID")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Download streams the original uploaded file.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid document ID")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	reader, err := h.blobs.Download(r.Context(), doc.FilePath)
	if err != nil {
		writeServiceError(w, fmt.Errorf("download blob: %w", err))
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension("." + doc.FileType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.OriginalFilename))
	if doc.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	}
	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("download interrupted", "document_id", id, "error", err)
	}
}

// ServeFile streams a blob by its storage path, the target of PublicURL.
func (h *DocumentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	blobPath := chi.URLParam(r, "*")
	if blobPath == "" {
		badRequest(w, "file path required")
		return
	}

	reader, err := h.blobs.Download(r.Context(), blobPath)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(path.Ext(blobPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("file serve interrupted", "path", blobPath, "error", err)
	}
}
