package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/websight/internal/probe"
)

// Extract issues one GET and pulls the page title and meta description out
// of the returned HTML, whatever the status code.
func (f *Fetcher) Extract(ctx context.Context, rawURL string, headers http.Header) (probe.SEOResult, error) {
	p, err := f.fetch(ctx, rawURL, headers)
	if err != nil {
		return probe.SEOResult{}, fmt.Errorf("extract seo metadata: %w", err)
	}
	return ParseSEO(p.body), nil
}

// ParseSEO extracts the first <title> text and the content of
// <meta name="description">. Missing elements yield the NoTitle and
// NoDescription sentinels; an empty content attribute is kept as "".
// Malformed markup is parsed best-effort.
func ParseSEO(body []byte) probe.SEOResult {
	result := probe.SEOResult{
		PageTitle:       probe.NoTitle,
		MetaDescription: probe.NoDescription,
	}
	if len(body) == 0 {
		return result
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return result
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		result.PageTitle = title
	}
	// A present tag wins even when its content is empty.
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		result.MetaDescription = strings.TrimSpace(content)
	}
	return result
}
