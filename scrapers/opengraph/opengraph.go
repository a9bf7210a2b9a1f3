// Package opengraph finds the main product image of any page through its
// social-card metadata.
package opengraph

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/raushankrgupta/fitly-tryon/scrapers/base"
)

type OpenGraphScraper struct {
	*base.BaseScraper
}

func NewOpenGraphScraper(b *base.BaseScraper) *OpenGraphScraper {
	return &OpenGraphScraper{BaseScraper: b}
}

// CanScrape accepts any http(s) page.
func (s *OpenGraphScraper) CanScrape(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func (s *OpenGraphScraper) GarmentImage(ctx context.Context, pageURL string) (string, error) {
	doc, err := s.FetchDocument(ctx, pageURL, func(doc *goquery.Document) bool {
		return ExtractImage(doc) != ""
	})
	if err != nil {
		return "", err
	}
	img := ExtractImage(doc)
	if img == "" {
		return "", fmt.Errorf("no product image on %s", pageURL)
	}
	return img, nil
}

var metaSelectors = []string{
	"meta[property='og:image:secure_url']",
	"meta[property='og:image']",
	"meta[name='og:image']",
	"meta[name='twitter:image']",
	"meta[property='twitter:image']",
	"meta[name='twitter:image:src']",
}

// ExtractImage returns the page's preferred image as an absolute URL:
// og:image, then twitter:image, then link rel=image_src, then the first <img>.
func ExtractImage(doc *goquery.Document) string {
	for _, sel := range metaSelectors {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			return Absolute(doc, v)
		}
	}
	if v := strings.TrimSpace(doc.Find("link[rel='image_src']").First().AttrOr("href", "")); v != "" {
		return Absolute(doc, v)
	}

	var src string
	doc.Find("img").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		v := strings.TrimSpace(sel.AttrOr("src", ""))
		if v == "" || strings.HasPrefix(v, "data:") {
			return true
		}
		src = v
		return false
	})
	if src == "" {
		return ""
	}
	return Absolute(doc, src)
}

// Absolute resolves ref against the document's URL. Protocol-relative refs
// get https.
func Absolute(doc *goquery.Document, ref string) string {
	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() || doc.Url == nil {
		return u.String()
	}
	return doc.Url.ResolveReference(u).String()
}
