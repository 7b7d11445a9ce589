package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("loading: %w", ErrDocumentNotFound), http.StatusNotFound},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"media", ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{"too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"timeout before partition", fmt.Errorf("%w: %w", ErrPartitionFailed, ErrTimeout), http.StatusGatewayTimeout},
		{"partition", fmt.Errorf("call: %w", ErrPartitionFailed), http.StatusBadGateway},
		{"app error wins", New(ErrDocumentNotFound, http.StatusGone, "gone"), http.StatusGone},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "field %s", "file")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("AppError should unwrap to its sentinel")
	}
	if err.Error() != "invalid input: field file" {
		t.Errorf("Error() = %q", err.Error())
	}
}
