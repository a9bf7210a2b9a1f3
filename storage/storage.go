// Package storage uploads user images and hands back durable public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrObjectNotFound is returned by Get for missing keys.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the object storage collaborator. Keys are slash separated
// paths inside the configured bucket, e.g. "{uid}/wardrobe/outfit_1700000000000.png".
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	PublicURL(key string) string
	// KeyForURL maps a URL produced by PublicURL back to its key.
	KeyForURL(url string) (string, bool)
	// ListBuckets is a diagnostic used by the buckets command.
	ListBuckets(ctx context.Context) ([]string, error)
	Bucket() string
}

// CleanKey normalizes an object key and rejects keys escaping the bucket.
func CleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}

// keyFromPrefix strips a public URL prefix, returning the key.
func keyFromPrefix(url, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(url, prefix+"/") {
		return "", false
	}
	key, err := CleanKey(strings.TrimPrefix(url, prefix+"/"))
	if err != nil {
		return "", false
	}
	return key, true
}

// ExtFromContentType returns a file extension for common image types.
func ExtFromContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
