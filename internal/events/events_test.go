package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/document"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/kafka"
)

type capturePublisher struct {
	events []kafka.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, e kafka.Event) error {
	c.events = append(c.events, e)
	return c.err
}

func TestNotifierPublishesOutcome(t *testing.T) {
	pub := &capturePublisher{}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := NewNotifier(pub).DocumentProcessed(context.Background(), pipeline.Outcome{
		DocumentID:  12,
		Status:      document.StatusReady,
		ClauseCount: 4,
		ProcessedAt: at,
	})
	if err != nil {
		t.Fatalf("DocumentProcessed: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Key != "12" {
		t.Fatalf("events = %+v", pub.events)
	}
	data, _ := json.Marshal(pub.events[0].Value)
	var got map[string]any
	_ = json.Unmarshal(data, &got)
	if got["status"] != "ready" || got["clause_count"] != float64(4) {
		t.Errorf("payload = %s", data)
	}
	if _, ok := got["error_message"]; ok {
		t.Errorf("empty error message should be omitted: %s", data)
	}
}

func TestRequestReprocess(t *testing.T) {
	pub := &capturePublisher{}
	if err := RequestReprocess(context.Background(), pub, 9); err != nil {
		t.Fatalf("RequestReprocess: %v", err)
	}
	req, ok := pub.events[0].Value.(ReprocessRequest)
	if !ok || req.DocumentID != 9 || req.RequestedAt.IsZero() {
		t.Errorf("value = %+v", pub.events[0].Value)
	}

	pub.err = errors.New("broker down")
	if err := RequestReprocess(context.Background(), pub, 9); err == nil {
		t.Error("expected publish error")
	}
}

type fakeMarker struct {
	marked []int64
	err    error
}

func (f *fakeMarker) MarkProcessing(_ context.Context, id int64) error {
	f.marked = append(f.marked, id)
	return f.err
}

type fakeProcessor struct {
	calls []int64
	err   error
}

func (f *fakeProcessor) Process(_ context.Context, id int64) error {
	f.calls = append(f.calls, id)
	return f.err
}

func message(t *testing.T, id int64) []byte {
	t.Helper()
	data, err := json.Marshal(ReprocessRequest{DocumentID: id, RequestedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestReprocessHandler(t *testing.T) {
	tests := []struct {
		name      string
		markErr   error
		procErr   error
		wantErr   bool
		wantCalls int
	}{
		{"success", nil, nil, false, 1},
		{"unknown document", fmt.Errorf("x: %w", apperrors.ErrDocumentNotFound), nil, false, 0},
		{"mark fails", errors.New("db down"), nil, true, 0},
		{"recorded failure", nil, &pipeline.ProcessError{DocumentID: 1, Err: apperrors.ErrPartitionFailed}, false, 1},
		{"unrecorded failure", nil, &pipeline.ProcessError{DocumentID: 1, Err: apperrors.ErrPartitionFailed, RecordErr: errors.New("db down")}, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker := &fakeMarker{err: tt.markErr}
			proc := &fakeProcessor{err: tt.procErr}
			err := ReprocessHandler(marker, proc)(context.Background(), []byte("1"), message(t, 1))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(proc.calls) != tt.wantCalls {
				t.Errorf("process calls = %d, want %d", len(proc.calls), tt.wantCalls)
			}
		})
	}
}

func TestReprocessHandlerDropsMalformed(t *testing.T) {
	proc := &fakeProcessor{}
	err := ReprocessHandler(&fakeMarker{}, proc)(context.Background(), nil, []byte("{not json"))
	if err != nil || len(proc.calls) != 0 {
		t.Errorf("err = %v, calls = %d", err, len(proc.calls))
	}
}
