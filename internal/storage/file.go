package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStorage keeps objects on the local filesystem below root.
type FileStorage struct {
	root       string
	publicBase string
}

// NewFileStorage returns a FileStorage rooted at root. publicBase is the URL
// the root is served under.
func NewFileStorage(root, publicBase string) (*FileStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root %q: %w", abs, err)
	}
	return &FileStorage{root: abs, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// Upload writes reader to root/key, creating parent directories. A partially
// written file is removed on failure.
func (s *FileStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %q: %w", key, err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %q: %w", key, err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("write %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close %q: %w", key, err)
	}
	return nil
}

// Delete unlinks root/key.
func (s *FileStorage) Delete(_ context.Context, key string) error {
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// PublicURL joins the public base and key with exactly one slash.
func (s *FileStorage) PublicURL(key string) string {
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}

// Path returns the filesystem location of key.
func (s *FileStorage) Path(key string) (string, error) {
	return s.resolve(key)
}

// resolve maps key below root and refuses keys that escape it.
func (s *FileStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
