// Package storage writes uploaded files under a root directory using
// generated names.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const defaultExt = ".pdf"

type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Save copies r into a new file named by a random hex id plus the extension
// of filename (".pdf" when it has none) and returns the file's path.
// A partially written file is removed on error.
func (s *FileStore) Save(r io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = defaultExt
	}
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	path := filepath.Join(s.root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing %s: %w", name, err)
	}
	return path, nil
}
