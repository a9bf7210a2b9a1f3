package scrapers

import (
	"context"
	"errors"
	"testing"
)

type stubScraper struct {
	host  string
	image string
}

func (s stubScraper) CanScrape(url string) bool { return url == s.host }

func (s stubScraper) GarmentImage(ctx context.Context, url string) (string, error) {
	return s.image, nil
}

func TestFindGarmentImageResolvesFirst(t *testing.T) {
	f := &Finder{
		Scrapers: []Scraper{
			stubScraper{host: "https://www.amazon.in/dp/B0", image: "https://m.media-amazon.com/b.jpg"},
		},
		Resolve: func(ctx context.Context, url string) (string, error) {
			if url == "https://amzn.in/d/abc" {
				return "https://www.amazon.in/dp/B0", nil
			}
			return url, errors.New("unreachable")
		},
	}

	got, err := f.FindGarmentImage(context.Background(), "https://amzn.in/d/abc")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://m.media-amazon.com/b.jpg" {
		t.Errorf("image = %q", got)
	}

	if _, err := f.FindGarmentImage(context.Background(), "https://elsewhere.example"); err == nil {
		t.Error("expected no-scraper error")
	}
}
