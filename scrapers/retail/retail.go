// Package retail knows where the big Indian fashion stores keep their main
// product image.
package retail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/raushankrgupta/fitly-tryon/scrapers/base"
	"github.com/raushankrgupta/fitly-tryon/scrapers/opengraph"
)

// Site is one store's hostname marker and image extractor.
type Site struct {
	Name    string
	Host    string
	Extract func(doc *goquery.Document) string
}

var Sites = []Site{
	{Name: "amazon", Host: "amazon.", Extract: amazonImage},
	{Name: "flipkart", Host: "flipkart.com", Extract: flipkartImage},
	{Name: "myntra", Host: "myntra.com", Extract: myntraImage},
	{Name: "tatacliq", Host: "tatacliq.com", Extract: galleryImage("img.ImageGallery__image")},
	{Name: "peterengland", Host: "peterengland.abfrl.in", Extract: galleryImage(".Start-image-gallery img", ".slick-track img")},
}

type RetailScraper struct {
	*base.BaseScraper
	Site Site
}

func NewRetailScraper(b *base.BaseScraper, site Site) *RetailScraper {
	return &RetailScraper{BaseScraper: b, Site: site}
}

func (s *RetailScraper) CanScrape(url string) bool {
	return strings.Contains(url, s.Site.Host)
}

// GarmentImage returns the store's main product image, falling back to the
// page's social-card image.
func (s *RetailScraper) GarmentImage(ctx context.Context, url string) (string, error) {
	doc, err := s.FetchDocument(ctx, url, func(doc *goquery.Document) bool {
		return base.IsValidDocument(doc) && ImageFor(s.Site, doc) != ""
	})
	if err != nil {
		return "", err
	}
	img := ImageFor(s.Site, doc)
	if img == "" {
		return "", fmt.Errorf("%s: no product image on %s", s.Site.Name, url)
	}
	return img, nil
}

// ImageFor applies the site's extractor, then the generic metadata lookup.
func ImageFor(site Site, doc *goquery.Document) string {
	if v := site.Extract(doc); v != "" {
		return opengraph.Absolute(doc, v)
	}
	return opengraph.ExtractImage(doc)
}

func amazonImage(doc *goquery.Document) string {
	landing := doc.Find("#landingImage").First()
	if hires := landing.AttrOr("data-old-hires", ""); hires != "" {
		return hires
	}
	// data-a-dynamic-image maps image URL to its [width, height]
	for _, sel := range []string{"#landingImage", "#imgBlkFront"} {
		raw := doc.Find(sel).AttrOr("data-a-dynamic-image", "")
		if raw == "" {
			continue
		}
		var sizes map[string][]int
		if err := json.Unmarshal([]byte(raw), &sizes); err != nil {
			continue
		}
		best, bestArea := "", 0
		for u, wh := range sizes {
			if len(wh) == 2 && wh[0]*wh[1] > bestArea {
				best, bestArea = u, wh[0]*wh[1]
			}
		}
		if best != "" {
			return best
		}
	}
	return landing.AttrOr("src", "")
}

func flipkartImage(doc *goquery.Document) string {
	src := doc.Find("ul._3GnUWp li._20Gt85 img").First().AttrOr("src", "")
	if src == "" {
		src = doc.Find("img._396cs4").First().AttrOr("src", "")
	}
	// thumbnails are served at 128px; the same path serves 832px
	return strings.Replace(src, "/128/128/", "/832/832/", 1)
}

func myntraImage(doc *goquery.Document) string {
	var img string
	doc.Find(".image-grid-image").EachWithBreak(func(i int, s *goquery.Selection) bool {
		img = backgroundURL(s.AttrOr("style", ""))
		return img == ""
	})
	return img
}

// backgroundURL pulls the URL out of an inline background-image style.
func backgroundURL(style string) string {
	start := strings.Index(style, "url(")
	if start == -1 {
		return ""
	}
	rest := style[start+len("url("):]
	end := strings.Index(rest, ")")
	if end == -1 {
		return ""
	}
	return strings.Trim(rest[:end], `"' `)
}

func galleryImage(selectors ...string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		for _, sel := range selectors {
			if src := doc.Find(sel).First().AttrOr("src", ""); src != "" {
				return src
			}
		}
		return ""
	}
}
