// Package collyfetcher implements the load-speed and SEO stages using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// Fetcher issues single GET requests through a Colly collector. It
// satisfies both probe.SpeedProber and probe.SEOExtractor.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// page is what one GET yields to the stages built on top of it.
type page struct {
	url           string
	statusCode    int
	headerLatency time.Duration
	body          []byte
	received      bool
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponseHeaders(colly.ResponseHeadersCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// fetch performs one GET. Non-2xx statuses are returned as values.
func (f *Fetcher) fetch(ctx context.Context, rawURL string, headers http.Header) (page, error) {
	var (
		result   page
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, headers, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return page{}, err
	}
	if !result.received {
		return page{}, errors.New("colly visit returned no response")
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	headers http.Header,
	result *page,
	fetchErr *error,
) {
	var start time.Time

	hooks.OnRequest(func(r *colly.Request) {
		copyHeaders(headers, r)
		start = time.Now()
	})

	// Latency stops once the status line and headers are in; the body is
	// still read so the SEO stage can parse it.
	hooks.OnResponseHeaders(func(r *colly.Response) {
		result.headerLatency = time.Since(start)
	})

	hooks.OnResponse(func(r *colly.Response) {
		result.url = r.Request.URL.String()
		result.statusCode = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
		result.received = true
		if result.headerLatency == 0 {
			result.headerLatency = time.Since(start)
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func copyHeaders(headers http.Header, r *colly.Request) {
	if headers == nil || r.Headers == nil {
		return
	}
	for key, values := range headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

// newHTTPTransport disables keep-alives so every probe opens fresh connections.
func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}
}
