package scrapers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/scrapers/base"
	"github.com/raushankrgupta/fitly-tryon/scrapers/opengraph"
	"github.com/raushankrgupta/fitly-tryon/scrapers/retail"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

// Finder picks the right scraper for a product URL.
type Finder struct {
	Scrapers []Scraper
	// Resolve expands shortened links before matching. Nil skips it.
	Resolve func(ctx context.Context, url string) (string, error)
}

// NewFinder registers the store scrapers followed by the generic one.
func NewFinder(browsers bool, chromeDriverPath string) *Finder {
	b := base.NewBaseScraper(browsers, chromeDriverPath)
	var list []Scraper
	for _, site := range retail.Sites {
		list = append(list, retail.NewRetailScraper(b, site))
	}
	list = append(list, opengraph.NewOpenGraphScraper(b))
	return &Finder{Scrapers: list, Resolve: utils.ResolveShortenedURL}
}

// GetScraper returns the appropriate scraper and the resolved URL
func (f *Finder) GetScraper(ctx context.Context, url string) (Scraper, string, error) {
	resolvedURL := url
	if f.Resolve != nil {
		u, err := f.Resolve(ctx, url)
		if err != nil {
			utils.Log.Info("could not resolve url, using it as given", zap.String("url", url), zap.Error(err))
		} else {
			resolvedURL = u
		}
	}

	for _, s := range f.Scrapers {
		if s.CanScrape(resolvedURL) {
			return s, resolvedURL, nil
		}
	}
	return nil, resolvedURL, fmt.Errorf("no scraper found for url: %s", resolvedURL)
}

// FindGarmentImage resolves a product page to its main image URL.
func (f *Finder) FindGarmentImage(ctx context.Context, url string) (string, error) {
	s, resolved, err := f.GetScraper(ctx, url)
	if err != nil {
		return "", err
	}
	return s.GarmentImage(ctx, resolved)
}
