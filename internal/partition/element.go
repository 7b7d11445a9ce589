// Package partition is the client for the external document partitioning
// service. The service turns a PDF into an ordered list of typed text
// elements; this package only transports them and does no interpretation.
package partition

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// TypeTitle is the element type that marks a heading.
const TypeTitle = "Title"

// Element is one extracted unit of text as returned by the service. The slice
// order of a response is reading order.
type Element struct {
	Type      string   `json:"type"`
	ElementID string   `json:"element_id"`
	Text      string   `json:"text"`
	Metadata  Metadata `json:"metadata"`
}

// Metadata carries the subset of element metadata the clause builder uses.
type Metadata struct {
	PageNumber PageNumber `json:"page_number,omitempty"`
	ParentID   string     `json:"parent_id,omitempty"`
	Filename   string     `json:"filename,omitempty"`
}

// IsTitle reports whether the element is a heading. The comparison ignores
// case.
func (e Element) IsTitle() bool {
	return strings.EqualFold(e.Type, TypeTitle)
}

// PageNumber is a 1-based page index; zero means the element carried no
// usable page. Values that are not positive integers decode to zero instead
// of failing the whole response.
type PageNumber int

func (p *PageNumber) UnmarshalJSON(data []byte) error {
	*p = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || f < 1 {
		return nil
	}
	*p = PageNumber(int(f))
	return nil
}

// Valid reports whether the page number is present.
func (p PageNumber) Valid() bool {
	return p > 0
}
