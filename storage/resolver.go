package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/raushankrgupta/fitly-tryon/utils"
)

// Resolver turns an image reference into bytes. It understands data URIs,
// public URLs of the object store, bundled asset paths such as
// "images/combos/formal_shirt.png", and any other http(s) URL.
type Resolver struct {
	Store     ObjectStore
	AssetsDir string
}

func (r *Resolver) Load(ctx context.Context, ref string) ([]byte, string, error) {
	if utils.IsDataURI(ref) {
		return utils.DecodeDataURI(ref)
	}
	if r.Store != nil {
		if key, ok := r.Store.KeyForURL(ref); ok {
			return r.Store.Get(ctx, key)
		}
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return utils.FetchImage(ctx, ref)
	}
	return r.loadAsset(ref)
}

func (r *Resolver) loadAsset(ref string) ([]byte, string, error) {
	if r.AssetsDir == "" {
		return nil, "", utils.ErrUnsupportedRef
	}
	key, err := CleanKey(ref)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(filepath.Join(r.AssetsDir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("asset %s: %w", key, ErrObjectNotFound)
	}
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}
