// Package events carries processing outcomes and reprocess requests over
// Kafka.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/logger"
)

// DocumentProcessed is published after every processing run.
type DocumentProcessed struct {
	DocumentID   int64     `json:"document_id"`
	Status       string    `json:"status"`
	ClauseCount  int       `json:"clause_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// ReprocessRequest asks a worker to run the pipeline again for a document.
type ReprocessRequest struct {
	DocumentID  int64     `json:"document_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Notifier publishes processing outcomes.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) DocumentProcessed(ctx context.Context, o pipeline.Outcome) error {
	return n.pub.Publish(ctx, kafka.Event{
		Key: strconv.FormatInt(o.DocumentID, 10),
		Value: DocumentProcessed{
			DocumentID:   o.DocumentID,
			Status:       string(o.Status),
			ClauseCount:  o.ClauseCount,
			ErrorMessage: o.ErrorMessage,
			ProcessedAt:  o.ProcessedAt,
		},
	})
}

// RequestReprocess queues a reprocess request for a worker.
func RequestReprocess(ctx context.Context, pub Publisher, documentID int64) error {
	err := pub.Publish(ctx, kafka.Event{
		Key: strconv.FormatInt(documentID, 10),
		Value: ReprocessRequest{
			DocumentID:  documentID,
			RequestedAt: time.Now().UTC(),
		},
	})
	if err != nil {
		return fmt.Errorf("requesting reprocess of document %d: %w", documentID, err)
	}
	return nil
}

// Marker resets a document to processing before a run.
type Marker interface {
	MarkProcessing(ctx context.Context, id int64) error
}

type Processor interface {
	Process(ctx context.Context, documentID int64) error
}

// ReprocessHandler consumes reprocess requests. Requests for missing
// documents and runs whose failure was recorded are acknowledged; anything
// else is left uncommitted.
func ReprocessHandler(marker Marker, proc Processor) kafka.MessageHandler {
	log := slog.Default().With("component", "reprocess-handler")
	return func(ctx context.Context, key, value []byte) error {
		req, err := kafka.DecodeJSON[ReprocessRequest](value)
		if err != nil {
			log.Error("dropping malformed reprocess request", "key", string(key), "error", err)
			return nil
		}
		ctx = logger.WithDocumentID(ctx, req.DocumentID)

		if err := marker.MarkProcessing(ctx, req.DocumentID); err != nil {
			if errors.Is(err, apperrors.ErrDocumentNotFound) {
				logger.FromContext(ctx).Warn("reprocess requested for unknown document")
				return nil
			}
			return err
		}

		err = proc.Process(ctx, req.DocumentID)
		var pe *pipeline.ProcessError
		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperrors.ErrDocumentNotFound):
			return nil
		case errors.As(err, &pe) && pe.StateRecorded():
			return nil
		default:
			return err
		}
	}
}
