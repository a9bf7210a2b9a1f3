package utils

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
)

func TestDataURIRoundTrip(t *testing.T) {
	uri := EncodeDataURI("image/png", []byte("\x89PNG"))
	if !IsDataURI(uri) {
		t.Fatalf("%q is not a data uri", uri)
	}
	data, ct, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatal(err)
	}
	if ct != "image/png" || string(data) != "\x89PNG" {
		t.Errorf("decoded %q as %q", data, ct)
	}
}

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantCT  string
		wantErr bool
	}{
		{name: "plain text", ref: "data:,hello", want: "hello", wantCT: "text/plain"},
		{name: "missing padding", ref: "data:image/png;base64,aGk", want: "hi", wantCT: "image/png"},
		{name: "no comma", ref: "data:image/png;base64", wantErr: true},
		{name: "not a data uri", ref: "https://x/y.png", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ct, err := DecodeDataURI(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if string(data) != tt.want || ct != tt.wantCT {
				t.Errorf("got %q %q, want %q %q", data, ct, tt.want, tt.wantCT)
			}
		})
	}
}

func TestResolveImageRefRejectsUnknownSchemes(t *testing.T) {
	_, _, err := ResolveImageRef(context.Background(), "ftp://host/file.png")
	if !errors.Is(err, ErrUnsupportedRef) {
		t.Errorf("err = %v", err)
	}
}

func TestSessionToken(t *testing.T) {
	token, err := GenerateToken("secret", "u1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" || claims.SessionID != "s1" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := ValidateToken("other", token); err == nil {
		t.Error("token accepted with the wrong secret")
	}
	if _, err := GenerateToken("", "u1", "s1"); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("empty secret err = %v", err)
	}
}

func TestIsPublicAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:4700::1111", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.0.0.5", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"fe80::1", false},
		{"0.0.0.0", false},
		{"::ffff:127.0.0.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := isPublicAddr(netip.MustParseAddr(tt.addr)); got != tt.want {
				t.Errorf("isPublicAddr(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestFetchImageRefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("loopback server was reached")
	}))
	defer srv.Close()

	_, _, err := FetchImage(context.Background(), srv.URL+"/a.png")
	if !errors.Is(err, ErrPrivateHost) {
		t.Errorf("err = %v, want ErrPrivateHost", err)
	}
}

func TestFetchImageSizeLimit(t *testing.T) {
	AllowPrivateImageHosts(true)
	t.Cleanup(func() { AllowPrivateImageHosts(false) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		size := maxImageBytes
		if r.URL.Path == "/big.png" {
			size++
		}
		w.Write(bytes.Repeat([]byte{0}, size))
	}))
	defer srv.Close()

	data, ct, err := FetchImage(context.Background(), srv.URL+"/exact.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != maxImageBytes || ct != "image/png" {
		t.Errorf("got %d bytes of %q", len(data), ct)
	}

	if _, _, err := FetchImage(context.Background(), srv.URL+"/big.png"); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("err = %v, want ErrImageTooLarge", err)
	}
}
