package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/document"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/logger"
)

type DocumentStore interface {
	CreateDocument(ctx context.Context, filename, filePath string, pageCount *int) (*document.Document, error)
	GetDocument(ctx context.Context, id int64) (*document.Document, error)
	MarkProcessing(ctx context.Context, id int64) error
}

type FileSaver interface {
	Save(r io.Reader, filename string) (string, error)
}

type Processor interface {
	Process(ctx context.Context, documentID int64) error
}

// Service runs uploads and reprocess requests synchronously.
type Service struct {
	files      FileSaver
	store      DocumentStore
	processor  Processor
	countPages func(path string) (int, error)
	logger     *slog.Logger
}

func NewService(files FileSaver, store DocumentStore, proc Processor) *Service {
	return &Service{
		files:      files,
		store:      store,
		processor:  proc,
		countPages: CountPages,
		logger:     slog.Default().With("component", "ingestion"),
	}
}

// Upload validates and stores the file, creates the document in the
// processing state and processes it before returning. A run that fails and
// records the failure is reported through the returned status, not an error.
func (s *Service) Upload(ctx context.Context, filename, contentType string, body io.Reader) (*UploadResponse, error) {
	if err := validator.ValidateUpload(filename, contentType); err != nil {
		return nil, err
	}

	path, err := s.files.Save(body, filename)
	if err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	if filename == "" {
		filename = filepath.Base(path)
	}

	var pageCount *int
	if n, err := s.countPages(path); err != nil {
		s.logger.Warn("could not count pages", "path", path, "error", err)
	} else {
		pageCount = &n
	}

	doc, err := s.store.CreateDocument(ctx, filename, path, pageCount)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	ctx = logger.WithDocumentID(ctx, doc.ID)
	logger.FromContext(ctx).Info("document uploaded", "filename", filename, "path", path)

	return s.process(ctx, doc.ID)
}

// Reprocess resets the document to processing and runs the pipeline again.
func (s *Service) Reprocess(ctx context.Context, documentID int64) (*UploadResponse, error) {
	if err := s.store.MarkProcessing(ctx, documentID); err != nil {
		return nil, err
	}
	ctx = logger.WithDocumentID(ctx, documentID)
	return s.process(ctx, documentID)
}

func (s *Service) process(ctx context.Context, documentID int64) (*UploadResponse, error) {
	if err := s.processor.Process(ctx, documentID); err != nil {
		var pe *pipeline.ProcessError
		if !errors.As(err, &pe) || !pe.StateRecorded() {
			return nil, err
		}
		logger.FromContext(ctx).Warn("processing failed", "error", pe.Err)
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("reloading document: %w", err)
	}
	return &UploadResponse{DocumentID: doc.ID, Status: doc.Status}, nil
}
