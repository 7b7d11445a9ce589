// Package handler implements the ClauseCop HTTP endpoints: uploads,
// document lookups, clause listings and reprocessing.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/document"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Ingestor interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (*ingestion.UploadResponse, error)
	Reprocess(ctx context.Context, documentID int64) (*ingestion.UploadResponse, error)
}

type DocumentReader interface {
	GetDocument(ctx context.Context, id int64) (*document.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]document.Document, error)
	ListClauses(ctx context.Context, documentID int64) ([]document.Clause, error)
}

type ClauseCache interface {
	GetOrLoad(ctx context.Context, documentID int64, load func(ctx context.Context) ([]document.Clause, error)) ([]document.Clause, error)
}

type Config struct {
	MaxUploadBytes int64
}

type Handler struct {
	ingest Ingestor
	docs   DocumentReader
	cache  ClauseCache
	cfg    Config
	logger *slog.Logger
}

// New creates a Handler. cache may be nil, in which case clause listings are
// read straight from docs.
func New(cfg Config, ingest Ingestor, docs DocumentReader, cache ClauseCache) *Handler {
	return &Handler{
		ingest: ingest,
		docs:   docs,
		cache:  cache,
		cfg:    cfg,
		logger: slog.Default().With("component", "api-handler"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload accepts a multipart "file" part, stores it and processes it inline.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	resp, err := h.ingest.Upload(ctx, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.handleError(w, log, "upload failed", err)
		return
	}
	log.Info("upload complete", "doc_id", resp.DocumentID, "status", resp.Status)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.GetDocument(r.Context(), id)
	if err != nil {
		h.handleError(w, logger.FromContext(r.Context()), "failed to fetch document", err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// ListDocuments returns the most recent documents, newest first.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= maxListLimit {
			limit = parsed
		}
	}
	docs, err := h.docs.ListDocuments(r.Context(), limit)
	if err != nil {
		h.handleError(w, logger.FromContext(r.Context()), "failed to list documents", err)
		return
	}
	if docs == nil {
		docs = []document.Document{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
		"limit":     limit,
	})
}

// ListClauses returns the document's clauses ordered by clause_index. An
// unknown document yields an empty list.
func (h *Handler) ListClauses(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	load := func(ctx context.Context) ([]document.Clause, error) {
		return h.docs.ListClauses(ctx, id)
	}

	var (
		clauses []document.Clause
		err     error
	)
	if h.cache != nil {
		clauses, err = h.cache.GetOrLoad(ctx, id, load)
	} else {
		clauses, err = load(ctx)
	}
	if err != nil {
		h.handleError(w, logger.FromContext(ctx), "failed to list clauses", err)
		return
	}
	if clauses == nil {
		clauses = []document.Clause{}
	}
	h.writeJSON(w, http.StatusOK, clauses)
}

// Reprocess runs the pipeline again for an existing document.
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	resp, err := h.ingest.Reprocess(ctx, id)
	if err != nil {
		h.handleError(w, logger.FromContext(ctx), "reprocess failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "document id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) handleError(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}

	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err, "status_code", status)
	} else {
		log.Info(msg, "error", err, "status_code", status)
	}
	if errors.Is(err, apperrors.ErrDocumentNotFound) {
		h.writeError(w, status, "document not found")
		return
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
