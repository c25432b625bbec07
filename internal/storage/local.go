package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps images in a directory served under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: "/uploads"}, nil
}

// Path is the file backing key. Keys are reduced to their base name so a
// crafted key cannot leave the upload directory.
func (s *LocalStore) Path(key string) string {
	return filepath.Join(s.Dir, filepath.Base(filepath.Clean("/"+key)))
}

func (s *LocalStore) URL(key string) string {
	return strings.TrimRight(s.URLPrefix, "/") + "/" + filepath.Base(filepath.Clean("/"+key))
}

func (s *LocalStore) Store(ctx context.Context, key string, r io.Reader) (string, error) {
	dst := s.Path(key)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return s.URL(key), nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether the file behind key is on disk.
func (s *LocalStore) Exists(key string) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}
