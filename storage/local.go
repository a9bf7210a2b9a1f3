package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// LocalStore keeps objects on disk under root/bucket and serves them over
// HTTP at /storage/.
type LocalStore struct {
	root    string
	bucket  string
	baseURL string
}

// NewLocalStore stores files under root. baseURL is the externally visible
// server address used to build public URLs.
func NewLocalStore(root, bucket, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(root, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{root: root, bucket: bucket, baseURL: baseURL}, nil
}

func (s *LocalStore) Bucket() string { return s.bucket }

func (s *LocalStore) path(key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, s.bucket, filepath.FromSlash(key)), nil
}

func (s *LocalStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrObjectNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}
	return data, http.DetectContentType(data), nil
}

func (s *LocalStore) prefix() string {
	return s.baseURL + "/storage/" + s.bucket
}

func (s *LocalStore) PublicURL(key string) string {
	return s.prefix() + "/" + key
}

func (s *LocalStore) KeyForURL(url string) (string, bool) {
	if key, ok := keyFromPrefix(url, s.prefix()); ok {
		return key, true
	}
	return keyFromPrefix(url, "/storage/"+s.bucket)
}

// ListBuckets returns the directories under root.
func (s *LocalStore) ListBuckets(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Handler serves stored files; mount it with http.StripPrefix("/storage/", ...).
func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.root))
}
