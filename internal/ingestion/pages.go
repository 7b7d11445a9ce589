package ingestion

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// CountPages returns the number of pages in the PDF at path.
func CountPages(path string) (n int, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}
