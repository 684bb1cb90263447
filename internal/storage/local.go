package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes assets to a directory served by the HTTP server under
// /uploads. It is the default when Supabase Storage is not configured.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *LocalStore) Upload(path, contentType string, data []byte) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return s.PublicURL(path), nil
}

func (s *LocalStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, path)
}

func (s *LocalStore) Download(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Delete(path string) error {
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
}

// Root returns the directory assets are written to, for static serving.
func (s *LocalStore) Root() string {
	return s.root
}
