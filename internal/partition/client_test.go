package partition

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/resilience"
)

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contract.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(url string) config.PartitionConfig {
	return config.PartitionConfig{
		URL:                     url,
		APIKey:                  "test-key",
		Timeout:                 time.Second,
		BreakerFailureThreshold: 5,
		BreakerResetTimeout:     time.Minute,
	}
}

func TestPartitionSendsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(apiKeyHeader); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("output_format"); got != "application/json" {
			t.Errorf("output_format = %q", got)
		}
		if got := r.FormValue("coordinates"); got != "false" {
			t.Errorf("coordinates = %q", got)
		}
		if got := r.FormValue("include_page_breaks"); got != "false" {
			t.Errorf("include_page_breaks = %q", got)
		}
		if got := r.FormValue("strategy"); got != "hi_res" {
			t.Errorf("strategy = %q", got)
		}
		file, hdr, err := r.FormFile("files")
		if err != nil {
			t.Fatalf("files part: %v", err)
		}
		defer file.Close()
		if hdr.Filename != "contract.pdf" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		data, _ := io.ReadAll(file)
		if !strings.HasPrefix(string(data), "%PDF") {
			t.Errorf("unexpected file content %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{"type": "Title", "element_id": "t1", "text": "11. Indemnification", "metadata": map[string]any{"page_number": 2}},
			{"type": "NarrativeText", "element_id": "n1", "text": "Body", "metadata": map[string]any{"page_number": "3", "parent_id": "t1"}},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	elements, err := c.Partition(context.Background(), writePDF(t), Options{Strategy: "hi_res"})
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if len(elements) != 2 {
		t.Fatalf("got %d elements, want 2", len(elements))
	}
	if !elements[0].IsTitle() || elements[0].Metadata.PageNumber != 2 {
		t.Errorf("first element = %+v", elements[0])
	}
	if elements[1].Metadata.ParentID != "t1" || elements[1].Metadata.PageNumber != 3 {
		t.Errorf("second element metadata = %+v", elements[1].Metadata)
	}
}

func TestPartitionServiceErrorIsTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, strings.Repeat("x", 2000))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	_, err := c.Partition(context.Background(), writePDF(t), Options{})

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("got %v, want *ServiceError", err)
	}
	if svcErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", svcErr.StatusCode)
	}
	if len(svcErr.Body) != maxErrorBody {
		t.Errorf("body length = %d, want %d", len(svcErr.Body), maxErrorBody)
	}
	if !errors.Is(err, apperrors.ErrPartitionFailed) {
		t.Error("service error should match ErrPartitionFailed")
	}
}

func TestPartitionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	c := NewClient(cfg, nil)

	_, err := c.Partition(context.Background(), writePDF(t), Options{})
	if !errors.Is(err, apperrors.ErrTimeout) || !errors.Is(err, apperrors.ErrPartitionFailed) {
		t.Errorf("got %v, want timeout partition error", err)
	}
}

func TestPartitionRequiresAPIKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	_, err := NewClient(cfg, nil).Partition(context.Background(), "unused.pdf", Options{})
	if !errors.Is(err, apperrors.ErrPartitionFailed) {
		t.Errorf("got %v, want ErrPartitionFailed", err)
	}
}

func TestPartitionCircuitOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BreakerFailureThreshold = 2
	c := NewClient(cfg, nil)
	path := writePDF(t)

	for i := 0; i < 3; i++ {
		if _, err := c.Partition(context.Background(), path, Options{}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2 (third rejected by breaker)", got)
	}
}

func TestPartitionClientErrorsDoNotOpenCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"file is not a valid PDF"}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	path := writePDF(t)

	for i := 0; i < 6; i++ {
		_, err := c.Partition(context.Background(), path, Options{})
		var svcErr *ServiceError
		if !errors.As(err, &svcErr) || svcErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("call %d: got %v, want 400 ServiceError", i, err)
		}
	}
	if got := calls.Load(); got != 6 {
		t.Errorf("server saw %d calls, want 6", got)
	}
	if state := c.breaker.GetState(); state != resilience.StateClosed {
		t.Errorf("breaker state = %v, want closed", state)
	}
}

func TestPartitionCallerCancelDoesNotOpenCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BreakerFailureThreshold = 1
	c := NewClient(cfg, nil)
	path := writePDF(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Partition(ctx, path, Options{})
	if !errors.Is(err, resilience.ErrCancelled) || !errors.Is(err, apperrors.ErrPartitionFailed) {
		t.Fatalf("got %v, want cancelled partition error", err)
	}

	if _, err := c.Partition(context.Background(), path, Options{}); err != nil {
		t.Fatalf("call after cancel: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestPartitionServiceErrorKeepsRuneBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "x"+strings.Repeat("é", 1000))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).Partition(context.Background(), writePDF(t), Options{})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("got %v, want *ServiceError", err)
	}
	if !utf8.ValidString(svcErr.Body) || len(svcErr.Body) != maxErrorBody-1 {
		t.Errorf("body length %d, valid UTF-8 %v", len(svcErr.Body), utf8.ValidString(svcErr.Body))
	}
}

func TestServiceErrorBodyKeepsRuneBoundary(t *testing.T) {
	body := "x" + strings.Repeat("é", maxErrorBody)
	err := newServiceError(http.StatusBadRequest, []byte(body))
	if !utf8.ValidString(err.Body) {
		t.Fatal("body is not valid UTF-8")
	}
	if len(err.Body) != maxErrorBody-1 {
		t.Errorf("body length = %d, want %d", len(err.Body), maxErrorBody-1)
	}
}

func TestPageNumberTolerance(t *testing.T) {
	tests := []struct {
		raw  string
		want PageNumber
	}{
		{`4`, 4},
		{`"7"`, 7},
		{`2.0`, 2},
		{`null`, 0},
		{`0`, 0},
		{`-3`, 0},
		{`"abc"`, 0},
		{`{}`, 0},
	}
	for _, tt := range tests {
		var md Metadata
		if err := json.Unmarshal([]byte(`{"page_number":`+tt.raw+`}`), &md); err != nil {
			t.Errorf("%s: unexpected error %v", tt.raw, err)
			continue
		}
		if md.PageNumber != tt.want {
			t.Errorf("%s: got %d, want %d", tt.raw, md.PageNumber, tt.want)
		}
	}
}
