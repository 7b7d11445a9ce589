// Package document persists uploaded contracts and the clauses extracted
// from them.
package document

import "time"

// Status is the processing state of a document.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// DefaultCategory is assigned to every extracted clause until a classifier
// labels it.
const DefaultCategory = "Other"

// MaxErrorMessage bounds the stored failure text, in characters.
const MaxErrorMessage = 500

type Document struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"file_path"`
	Status       Status    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	PageCount    *int      `json:"page_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Clause struct {
	ID            int64    `json:"id"`
	DocumentID    int64    `json:"-"`
	ClauseIndex   int      `json:"clause_index"`
	SectionNumber *string  `json:"section_number"`
	Title         *string  `json:"title"`
	Category      string   `json:"category"`
	Confidence    *float64 `json:"confidence"`
	PageStart     int      `json:"page_start"`
	PageEnd       int      `json:"page_end"`
	Text          string   `json:"text"`
}

// TruncateMessage cuts msg to at most MaxErrorMessage characters.
func TruncateMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxErrorMessage {
		return msg
	}
	return string(runes[:MaxErrorMessage])
}
