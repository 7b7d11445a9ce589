// Package validator checks uploads before anything is written to disk and
// returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"
)

// ContentTypePDF is the only accepted upload media type.
const ContentTypePDF = "application/pdf"

const maxFilenameLength = 255

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateUpload checks the declared media type and the client file name.
// An empty file name is allowed; the stored name falls back to a default.
func ValidateUpload(filename, contentType string) error {
	errs := make(map[string]string)

	if mediaType(contentType) != ContentTypePDF {
		errs["file"] = "Only PDF files are supported"
	}
	if len(filename) > maxFilenameLength {
		errs["filename"] = fmt.Sprintf("filename must be at most %d characters", maxFilenameLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// mediaType strips parameters such as "; charset=binary".
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
