// Package ingestion accepts uploaded contracts, stores the file, records the
// document and runs it through the processing pipeline inline.
package ingestion

import "github.com/Adithya-Monish-Kumar-K/clausecop/internal/document"

// UploadResponse is returned to the caller after an upload or reprocess.
type UploadResponse struct {
	DocumentID int64           `json:"document_id"`
	Status     document.Status `json:"status"`
}
