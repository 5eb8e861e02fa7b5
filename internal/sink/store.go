// Package sink stores diagnostic files uploaded by webcam-colorspace clients.
package sink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"webcam-colorspace/internal/application"
	"webcam-colorspace/internal/domain"
	"webcam-colorspace/internal/imaging"
)

// Store writes uploads to <root>/<session>/<name>.
type Store struct {
	root   string
	logger application.Logger
	mutex  sync.Mutex
}

// NewStore creates the root directory if needed.
func NewStore(root string, logger application.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Save validates an upload and writes it to disk, returning the file path.
func (s *Store) Save(h domain.UploadHeader, data []byte) (string, error) {
	if err := validate(h, data); err != nil {
		return "", err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	dir := filepath.Join(s.root, h.Session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	path := filepath.Join(dir, h.Name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.Info("Stored %s (%d bytes)", path, len(data))
	return path, nil
}

func validate(h domain.UploadHeader, data []byte) error {
	if _, err := uuid.Parse(h.Session); err != nil {
		return fmt.Errorf("invalid session %q: %w", h.Session, err)
	}
	if h.Name == "" || h.Name == "." || h.Name == ".." || h.Name != filepath.Base(h.Name) ||
		strings.ContainsAny(h.Name, `/\`) {
		return fmt.Errorf("invalid file name %q", h.Name)
	}
	if len(data) != h.Size {
		return fmt.Errorf("size mismatch for %s: header says %d, got %d", h.Name, h.Size, len(data))
	}
	if strings.EqualFold(filepath.Ext(h.Name), ".bmp") {
		fh, _, err := imaging.ReadBMPHeader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%s: %w", h.Name, err)
		}
		if int(fh.Size) != len(data) {
			return fmt.Errorf("%s: header size %d does not match %d bytes", h.Name, fh.Size, len(data))
		}
	}
	return nil
}
