package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/raushankrgupta/fitly-tryon/utils"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "u1/wardrobe/outfit_1.png", want: "u1/wardrobe/outfit_1.png"},
		{key: "/u1//cloths/1.png", want: "u1/cloths/1.png"},
		{key: "../etc/passwd", wantErr: true},
		{key: "u1/../../x", wantErr: true},
		{key: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CleanKey(%q) err = %v", tt.key, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("CleanKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "wardrobe_images", "http://localhost:8080")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Upload(ctx, "u1/wardrobe/outfit_1.png", []byte("png-bytes"), "image/png"); err != nil {
		t.Fatal(err)
	}

	url := s.PublicURL("u1/wardrobe/outfit_1.png")
	if url != "http://localhost:8080/storage/wardrobe_images/u1/wardrobe/outfit_1.png" {
		t.Errorf("PublicURL = %q", url)
	}
	key, ok := s.KeyForURL(url)
	if !ok || key != "u1/wardrobe/outfit_1.png" {
		t.Errorf("KeyForURL = %q, %v", key, ok)
	}

	data, _, err := s.Get(ctx, key)
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("Get = %q, %v", data, err)
	}
	if _, _, err := s.Get(ctx, "u1/missing.png"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("missing Get err = %v", err)
	}

	buckets, err := s.ListBuckets(ctx)
	if err != nil || len(buckets) != 1 || buckets[0] != "wardrobe_images" {
		t.Errorf("ListBuckets = %v, %v", buckets, err)
	}
}

func TestResolverLoad(t *testing.T) {
	ctx := context.Background()
	assets := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assets, "images", "combos"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assets, "images", "combos", "formal_shirt.png"), []byte("shirt"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := NewLocalStore(t.TempDir(), "wardrobe_images", "http://localhost:8080")
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Upload(ctx, "u1/base.png", []byte("base"), "image/png")

	r := &Resolver{Store: store, AssetsDir: assets}

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{name: "data uri", ref: utils.EncodeDataURI("image/png", []byte("inline")), want: "inline"},
		{name: "stored object", ref: store.PublicURL("u1/base.png"), want: "base"},
		{name: "asset", ref: "images/combos/formal_shirt.png", want: "shirt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _, err := r.Load(ctx, tt.ref)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Load = %q, want %q", data, tt.want)
			}
		})
	}

	if _, _, err := r.Load(ctx, "../secret.png"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if _, _, err := r.Load(ctx, "http://169.254.169.254/latest/meta-data/"); !errors.Is(err, utils.ErrPrivateHost) {
		t.Errorf("link-local url err = %v, want ErrPrivateHost", err)
	}
}
