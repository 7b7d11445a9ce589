package kafka

import "testing"

type reprocessRequest struct {
	DocumentID int64 `json:"document_id"`
}

func TestDecodeJSON(t *testing.T) {
	req, err := DecodeJSON[reprocessRequest]([]byte(`{"document_id":42}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if req.DocumentID != 42 {
		t.Errorf("document_id = %d, want 42", req.DocumentID)
	}

	if _, err := DecodeJSON[reprocessRequest]([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
