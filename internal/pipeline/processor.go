// Package pipeline runs a stored contract through partitioning, clause
// reconstruction and persistence, recording the outcome on the document.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/clause"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/document"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/partition"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/tracing"
)

// Store is the persistence the processor needs. *document.Store satisfies it.
type Store interface {
	GetDocument(ctx context.Context, id int64) (*document.Document, error)
	CompleteProcessing(ctx context.Context, id int64, clauses []document.Clause) error
	FailProcessing(ctx context.Context, id int64, message string) error
}

type Partitioner interface {
	Partition(ctx context.Context, path string, opts partition.Options) ([]partition.Element, error)
}

// Invalidator drops cached clause listings for a document.
type Invalidator interface {
	Invalidate(ctx context.Context, documentID int64) error
}

// Notifier is told about every finished run.
type Notifier interface {
	DocumentProcessed(ctx context.Context, outcome Outcome) error
}

// Outcome summarises one processing run.
type Outcome struct {
	DocumentID   int64
	Status       document.Status
	ClauseCount  int
	ErrorMessage string
	ProcessedAt  time.Time
}

type Config struct {
	Store       Store
	Partitioner Partitioner
	Cache       Invalidator
	Notifier    Notifier
	Metrics     *metrics.Metrics
}

type Processor struct {
	store       Store
	partitioner Partitioner
	cache       Invalidator
	notifier    Notifier
	metrics     *metrics.Metrics
}

func New(cfg Config) *Processor {
	return &Processor{
		store:       cfg.Store,
		partitioner: cfg.Partitioner,
		cache:       cfg.Cache,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
	}
}

// Process partitions the document's file, rebuilds its clauses and marks it
// ready. On failure the document is marked failed with the error message and
// a *ProcessError is returned. A missing document is returned unchanged and
// nothing is written.
//
// The caller sets the document to processing before invoking Process. A run
// is not cancelled with ctx: once started it finishes and records ready or
// failed, bounded only by the partition client's timeout.
func (p *Processor) Process(ctx context.Context, documentID int64) error {
	ctx = logger.WithDocumentID(context.WithoutCancel(ctx), documentID)
	ctx, span := tracing.StartSpan(ctx, "process_document")
	log := logger.FromContext(ctx).With("component", "processor")
	start := time.Now()

	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		span.End(err)
		return err
	}

	outcome := Outcome{DocumentID: documentID}
	res, err := p.run(ctx, doc)
	if err == nil {
		outcome.Status = document.StatusReady
		outcome.ClauseCount = len(res.Drafts)
		log.Info("document processed",
			"clauses", len(res.Drafts),
			"headings", res.Headings,
			"discarded", res.Discarded,
			"orphans", res.Orphans,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		msg := failureMessage(err)
		recordErr := p.store.FailProcessing(ctx, documentID, msg)
		outcome.Status = document.StatusFailed
		outcome.ErrorMessage = document.TruncateMessage(msg)
		err = &ProcessError{DocumentID: documentID, Err: err, RecordErr: recordErr}
		if recordErr != nil {
			log.Error("document processing failed and state was not recorded",
				"error", outcome.ErrorMessage, "record_error", recordErr)
		} else {
			log.Warn("document processing failed", "error", outcome.ErrorMessage)
		}
	}
	outcome.ProcessedAt = time.Now().UTC()

	p.metrics.ObserveRun(string(outcome.Status), outcome.ClauseCount, res.Discarded, time.Since(start))
	p.afterRun(ctx, log, outcome)

	span.SetAttr("status", string(outcome.Status))
	span.End(err)
	span.Log(log)
	return err
}

func (p *Processor) run(ctx context.Context, doc *document.Document) (clause.Result, error) {
	elements, err := p.partition(ctx, doc.FilePath)
	if err != nil {
		return clause.Result{}, err
	}

	_, span := tracing.StartSpan(ctx, "build_clauses")
	res := clause.Build(elements)
	span.SetAttr("elements", len(elements))
	span.SetAttr("drafts", len(res.Drafts))
	span.End(nil)

	ctx, span = tracing.StartSpan(ctx, "persist_clauses")
	err = p.store.CompleteProcessing(ctx, doc.ID, ToClauses(res.Drafts))
	span.End(err)
	if err != nil {
		return res, fmt.Errorf("saving clauses: %w", err)
	}
	return res, nil
}

func (p *Processor) partition(ctx context.Context, path string) ([]partition.Element, error) {
	ctx, span := tracing.StartSpan(ctx, "partition")
	elements, err := p.partitioner.Partition(ctx, path, partition.Options{Coordinates: false})
	span.SetAttr("elements", len(elements))
	span.End(err)
	if err != nil {
		return nil, fmt.Errorf("partitioning %s: %w", path, err)
	}
	return elements, nil
}

// afterRun refreshes derived state. Failures here are logged only.
func (p *Processor) afterRun(ctx context.Context, log *slog.Logger, outcome Outcome) {
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, outcome.DocumentID); err != nil {
			log.Warn("failed to invalidate clause cache", "error", err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.DocumentProcessed(ctx, outcome); err != nil {
			log.Warn("failed to publish processing outcome", "error", err)
		}
	}
}

// ToClauses numbers drafts in order and fills the defaults for fields the
// builder does not produce.
func ToClauses(drafts []clause.Draft) []document.Clause {
	clauses := make([]document.Clause, 0, len(drafts))
	for i, d := range drafts {
		clauses = append(clauses, document.Clause{
			ClauseIndex:   i,
			SectionNumber: optional(d.SectionNumber),
			Title:         optional(d.Title),
			Category:      document.DefaultCategory,
			PageStart:     d.PageStart,
			PageEnd:       d.PageEnd,
			Text:          d.Text,
		})
	}
	return clauses
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func failureMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fmt.Sprintf("processing failed: %T", err)
}
