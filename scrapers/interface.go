package scrapers

import "context"

// Scraper finds the garment image on a product page.
type Scraper interface {
	// CanScrape checks if the scraper can handle the given URL
	CanScrape(url string) bool
	// GarmentImage returns the absolute URL of the page's main product image
	GarmentImage(ctx context.Context, url string) (string, error)
}
