package base

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/utils"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BaseScraper handles common page fetching logic
type BaseScraper struct {
	Client *http.Client
	// Browsers enables the ChromeDP and Selenium fallbacks.
	Browsers         bool
	ChromeDriverPath string
}

// NewBaseScraper creates a new BaseScraper instance
func NewBaseScraper(browsers bool, chromeDriverPath string) *BaseScraper {
	return &BaseScraper{
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				ForceAttemptHTTP2:     false,
				TLSNextProto:          make(map[string]func(string, *tls.Conn) http.RoundTripper),
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		Browsers:         browsers,
		ChromeDriverPath: chromeDriverPath,
	}
}

// FetchDocument fetches the URL using multiple strategies with a custom validator
func (b *BaseScraper) FetchDocument(ctx context.Context, url string, validator func(*goquery.Document) bool) (*goquery.Document, error) {
	log := utils.Log.With(zap.String("url", url))

	// Strategy 1: HTTP Client (Fastest)
	doc, err := b.FetchDocumentHTTP(ctx, url)
	if err == nil {
		if validator(doc) {
			log.Debug("http fetch succeeded")
			return doc, nil
		}
		log.Info("http fetch yielded invalid content, trying fallbacks")
	} else {
		log.Info("http fetch failed", zap.Error(err))
	}

	if !b.Browsers {
		return nil, fmt.Errorf("no usable page for %s", url)
	}

	// Strategy 2: ChromeDP (Headless)
	doc, err = b.FetchDocumentChromeDP(ctx, url)
	if err == nil && validator(doc) {
		log.Info("chromedp fetch succeeded")
		return doc, nil
	}
	if err != nil {
		log.Warn("chromedp fetch failed", zap.Error(err))
	}

	// Strategy 3: Selenium (Full Browser)
	doc, err = b.FetchDocumentSelenium(ctx, url)
	if err == nil && validator(doc) {
		log.Info("selenium fetch succeeded")
		return doc, nil
	}
	if err != nil {
		log.Warn("selenium fetch failed", zap.Error(err))
	}

	return nil, fmt.Errorf("all strategies failed for %s", url)
}

// IsValidDocument rejects bot-check pages and near-empty bodies.
func IsValidDocument(doc *goquery.Document) bool {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").Text()))
	if strings.Contains(title, "robot check") ||
		strings.Contains(title, "captcha") ||
		strings.Contains(title, "access denied") {
		return false
	}
	return doc.Find("meta[property='og:image']").Length() > 0 || len(strings.TrimSpace(doc.Find("body").Text())) > 200
}

// FetchDocumentHTTP fetches the URL and returns a GoQuery document via standard HTTP
func (b *BaseScraper) FetchDocumentHTTP(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// Common headers to mimic a real browser
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")

	res, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, err
	}
	doc.Url = res.Request.URL
	return doc, nil
}

// setDocumentURL records where the page ended up so relative image paths
// can be resolved. It prefers the browser's final location.
func setDocumentURL(doc *goquery.Document, locations ...string) {
	for _, loc := range locations {
		if u, err := neturl.Parse(loc); err == nil && u.IsAbs() {
			doc.Url = u
			return
		}
	}
}
