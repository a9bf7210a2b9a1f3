package opengraph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/raushankrgupta/fitly-tryon/scrapers/base"
)

func docAt(t *testing.T, pageURL, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	doc.Url, _ = url.Parse(pageURL)
	return doc
}

func TestExtractImage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "og image wins",
			html: `<head><meta name="twitter:image" content="https://cdn/t.jpg"><meta property="og:image" content="https://cdn/og.jpg"></head><body><img src="/a.png"></body>`,
			want: "https://cdn/og.jpg",
		},
		{
			name: "twitter image",
			html: `<head><meta name="twitter:image" content="/img/t.jpg"></head>`,
			want: "https://shop.example/img/t.jpg",
		},
		{
			name: "protocol relative",
			html: `<head><meta property="og:image" content="//cdn.example/x.jpg"></head>`,
			want: "https://cdn.example/x.jpg",
		},
		{
			name: "first img skips inline data",
			html: `<body><img src="data:image/gif;base64,R0lG"><img src="shirt.png"></body>`,
			want: "https://shop.example/p/shirt.png",
		},
		{
			name: "nothing",
			html: `<body><p>no pictures</p></body>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractImage(docAt(t, "https://shop.example/p/item", tt.html)); got != tt.want {
				t.Errorf("ExtractImage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGarmentImageOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		fmt.Fprint(w, `<html><head><title>Linen Shirt</title><meta property="og:image" content="/media/linen.jpg"></head><body></body></html>`)
	}))
	defer srv.Close()

	s := NewOpenGraphScraper(base.NewBaseScraper(false, ""))
	if !s.CanScrape(srv.URL + "/p/1") {
		t.Fatal("CanScrape rejected an http url")
	}
	got, err := s.GarmentImage(context.Background(), srv.URL+"/p/1")
	if err != nil {
		t.Fatalf("GarmentImage: %v", err)
	}
	if got != srv.URL+"/media/linen.jpg" {
		t.Errorf("image = %q", got)
	}
}

func TestGarmentImageWithoutBrowsersFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing to see</body></html>`)
	}))
	defer srv.Close()

	s := NewOpenGraphScraper(base.NewBaseScraper(false, ""))
	if _, err := s.GarmentImage(context.Background(), srv.URL); err == nil {
		t.Error("expected an error for a page without images")
	}
}
