package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the storage directory.
var ErrOutsideRoot = errors.New("path escapes storage root")

// LocalStorage persists uploaded files on disk under a base directory and
// names them by the public prefix they are served from (e.g. "uploads/x.pdf").
type LocalStorage struct {
	baseDir      string
	publicPrefix string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, publicPrefix string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	publicPrefix = strings.Trim(publicPrefix, "/")
	if publicPrefix == "" {
		publicPrefix = "uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicPrefix: publicPrefix}, nil
}

// SaveStream copies r into name (relative to the base dir) and returns the
// public path clients use to fetch it.
func (s *LocalStorage) SaveStream(name string, r io.Reader) (string, error) {
	target, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write upload stream: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("flush upload file: %w", err)
	}
	return path.Join(s.publicPrefix, filepath.ToSlash(filepath.Clean(name))), nil
}

// Delete removes a stored file by its public path. Missing files are ignored.
func (s *LocalStorage) Delete(publicPath string) error {
	target, err := s.resolve(s.relative(publicPath))
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Path maps a public path to its location on disk.
func (s *LocalStorage) Path(publicPath string) (string, error) {
	return s.resolve(s.relative(publicPath))
}

// Dir is the directory served under the public prefix.
func (s *LocalStorage) Dir() string {
	return s.baseDir
}

// PublicPrefix is the URL segment uploads are served from.
func (s *LocalStorage) PublicPrefix() string {
	return s.publicPrefix
}

func (s *LocalStorage) relative(publicPath string) string {
	p := strings.TrimPrefix(filepath.ToSlash(publicPath), "/")
	return strings.TrimPrefix(p, s.publicPrefix+"/")
}

func (s *LocalStorage) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return filepath.Join(s.baseDir, clean), nil
}
