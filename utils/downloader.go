package utils

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

// ErrNotDataURI is returned by DecodeDataURI for refs that are not data URIs.
var ErrNotDataURI = errors.New("not a data uri")

// maxImageBytes caps how much of a remote image is read.
const maxImageBytes = 20 << 20

var (
	// ErrImageTooLarge is returned when a remote image exceeds maxImageBytes.
	ErrImageTooLarge = errors.New("image too large")
	// ErrPrivateHost is returned when an image URL resolves to a loopback,
	// private or link-local address.
	ErrPrivateHost = errors.New("image host is not public")
)

var allowPrivateHosts atomic.Bool

// AllowPrivateImageHosts lets FetchImage reach loopback and private
// addresses, for local development against a local inference server.
func AllowPrivateImageHosts(allow bool) {
	allowPrivateHosts.Store(allow)
}

var imageClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
			Control: publicOnly,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
	},
}

// publicOnly runs after DNS resolution, so a name pointing at an internal
// address is refused too.
func publicOnly(network, address string, _ syscall.RawConn) error {
	if allowPrivateHosts.Load() {
		return nil
	}
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%s: %w", address, ErrPrivateHost)
	}
	if !isPublicAddr(ap.Addr()) {
		return fmt.Errorf("%s: %w", address, ErrPrivateHost)
	}
	return nil
}

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsInterfaceLocalMulticast() &&
		!addr.IsMulticast() &&
		!addr.IsUnspecified()
}

// IsDataURI reports whether ref is an inline data URI.
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// EncodeDataURI returns data as a base64 data URI.
func EncodeDataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a data URI into its bytes and media type.
func DecodeDataURI(ref string) ([]byte, string, error) {
	if !IsDataURI(ref) {
		return nil, "", ErrNotDataURI
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri")
	}
	contentType := header
	isBase64 := false
	if strings.HasSuffix(header, ";base64") {
		contentType = strings.TrimSuffix(header, ";base64")
		isBase64 = true
	}
	if contentType == "" {
		contentType = "text/plain"
	}
	if !isBase64 {
		return []byte(payload), contentType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// canvas exports occasionally drop padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("decode data uri: %w", err)
		}
	}
	return data, contentType, nil
}

// ErrUnsupportedRef is returned for image references that are neither data
// URIs nor http(s) URLs.
var ErrUnsupportedRef = errors.New("unsupported image reference")

// ResolveImageRef returns the bytes behind a data URI or http(s) URL.
func ResolveImageRef(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case ref == "":
		return nil, "", fmt.Errorf("empty image reference")
	case IsDataURI(ref):
		return DecodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return FetchImage(ctx, ref)
	default:
		return nil, "", ErrUnsupportedRef
	}
}

// FetchImage downloads an image over HTTP. Only public hosts are reached
// unless AllowPrivateImageHosts was set.
func FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (macOS) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := imageClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch image, status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("%s: %w", url, ErrImageTooLarge)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
