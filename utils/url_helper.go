package utils

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var resolveClient = &http.Client{Timeout: 15 * time.Second}

// ResolveShortenedURL follows redirects (amzn.in, bit.ly, ...) to the final URL.
func ResolveShortenedURL(ctx context.Context, url string) (string, error) {
	final, err := finalURL(ctx, http.MethodHead, url)
	if err == nil {
		return final, nil
	}
	// some stores reject HEAD
	return finalURL(ctx, http.MethodGet, url)
}

func finalURL(ctx context.Context, method, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return url, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := resolveClient.Do(req)
	if err != nil {
		return url, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return url, fmt.Errorf("resolve %s: %s", url, resp.Status)
	}
	return resp.Request.URL.String(), nil
}
