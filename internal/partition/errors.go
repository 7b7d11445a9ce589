package partition

import (
	"fmt"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/errors"
)

// maxErrorBody bounds how much of a failed response body is kept, in bytes.
// The cut never splits a rune.
const maxErrorBody = 500

// ServiceError is returned when the service answers with a non-success
// status. It unwraps to errors.ErrPartitionFailed.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("partition service error %d: %s", e.StatusCode, e.Body)
}

func (e *ServiceError) Unwrap() error {
	return apperrors.ErrPartitionFailed
}

func newServiceError(status int, body []byte) *ServiceError {
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return &ServiceError{StatusCode: status, Body: string(body)}
}
