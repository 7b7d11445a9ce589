package partition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/resilience"
)

const (
	apiKeyHeader     = "unstructured-api-key"
	filesField       = "files"
	outputFormatJSON = "application/json"
)

// Options are the per-call partition parameters. An empty Strategy falls
// back to the client's configured strategy; if that is empty too the field
// is omitted and the service picks.
type Options struct {
	Strategy          string
	Coordinates       bool
	IncludePageBreaks bool
}

// Client calls the partition endpoint. Each call is a single attempt bounded
// by the configured timeout; a circuit breaker rejects calls outright while
// the service is failing.
type Client struct {
	url      string
	apiKey   string
	strategy string
	timeout  time.Duration
	http     *http.Client
	breaker  *resilience.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewClient builds a Client from cfg. m may be nil.
func NewClient(cfg config.PartitionConfig, m *metrics.Metrics) *Client {
	breaker := resilience.NewCircuitBreaker("partition", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerFailureThreshold,
		ResetTimeout:     cfg.BreakerResetTimeout,
		OnStateChange: func(name string, _, to resilience.State) {
			m.SetBreakerState(name, int(to))
		},
		IsFailure: isServiceFailure,
	})
	return &Client{
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		strategy: cfg.Strategy,
		timeout:  cfg.Timeout,
		http:     &http.Client{},
		breaker:  breaker,
		metrics:  m,
		logger:   slog.Default().With("component", "partition-client"),
	}
}

// Partition uploads the PDF at path and returns the service's elements in
// response order. Every failure wraps errors.ErrPartitionFailed; timeouts
// additionally wrap errors.ErrTimeout.
func (c *Client) Partition(ctx context.Context, path string, opts Options) ([]Element, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: api key is not configured", apperrors.ErrPartitionFailed)
	}

	body, contentType, err := c.encodeForm(path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrPartitionFailed, err)
	}

	start := time.Now()
	var elements []Element
	err = c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.timeout, "partition", func(ctx context.Context) error {
			els, err := c.do(ctx, body, contentType, filepath.Base(path))
			if err != nil {
				return err
			}
			elements = els
			return nil
		})
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		c.metrics.ObservePartition("ok", elapsed)
		c.logger.Info("partition completed",
			"file", filepath.Base(path),
			"elements", len(elements),
			"duration_ms", elapsed.Milliseconds(),
		)
		return elements, nil
	case errors.Is(err, resilience.ErrCircuitOpen):
		c.metrics.ObservePartition("rejected", elapsed)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrPartitionFailed, err)
	case errors.Is(err, resilience.ErrCancelled):
		c.metrics.ObservePartition("cancelled", elapsed)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrPartitionFailed, err)
	case errors.Is(err, context.DeadlineExceeded):
		c.metrics.ObservePartition("timeout", elapsed)
		return nil, fmt.Errorf("%w: %w: %w", apperrors.ErrPartitionFailed, apperrors.ErrTimeout, err)
	default:
		c.metrics.ObservePartition("error", elapsed)
		if errors.Is(err, apperrors.ErrPartitionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrPartitionFailed, err)
	}
}

func (c *Client) do(ctx context.Context, body []byte, contentType, file string) ([]Element, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building partition request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", outputFormatJSON)
	req.Header.Set(apiKeyHeader, c.apiKey)

	c.logger.Debug("calling partition service", "url", c.url, "file", file)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling partition service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+utf8.UTFMax))
		return nil, newServiceError(resp.StatusCode, data)
	}

	var elements []Element
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("decoding partition response: %w", err)
	}
	return elements, nil
}

// encodeForm builds the multipart body: the PDF under "files" plus the
// string-valued options the service expects.
func (c *Client) encodeForm(path string, opts Options) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, filesField, filepath.Base(path)))
	hdr.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copying %s: %w", path, err)
	}

	fields := [][2]string{
		{"output_format", outputFormatJSON},
		{"coordinates", strconv.FormatBool(opts.Coordinates)},
		{"include_page_breaks", strconv.FormatBool(opts.IncludePageBreaks)},
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = c.strategy
	}
	if strategy != "" {
		fields = append(fields, [2]string{"strategy", strategy})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", kv[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// isServiceFailure reports whether err says the service itself is unhealthy:
// transport errors, timeouts and 5xx answers. Rejected input (4xx) and the
// caller giving up do not count against the circuit.
func isServiceFailure(err error) bool {
	if errors.Is(err, resilience.ErrCancelled) {
		return false
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
