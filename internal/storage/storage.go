package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the blob store documents live in, keyed by the path recorded on
// the document row.
type Storage interface {
	Upload(ctx context.Context, path string, data io.Reader, contentType string) error
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
}

// LocalStorage keeps blobs on disk under a root directory. Paths are
// confined to the root; anything trying to escape it is rejected.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(path)))
	if clean != s.root && !strings.HasPrefix(clean, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage root", path)
	}
	return clean, nil
}

func (s *LocalStorage) Upload(ctx context.Context, path string, data io.Reader, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		os.Remove(full)
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (s *LocalStorage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func (s *LocalStorage) PublicURL(path string) string {
	return "/api/v1/files/" + path
}
