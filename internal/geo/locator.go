// Package geo resolves a URL's host and looks up the serving IP's city and
// country through an ip-api.com compatible JSON endpoint.
package geo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/JakeFAU/websight/internal/probe"
)

const (
	// DefaultBaseURL is the public ip-api.com JSON endpoint.
	DefaultBaseURL = "http://ip-api.com/json/"
	defaultTimeout = 10 * time.Second
)

// Resolver resolves hostnames. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Config controls the Locator.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Resolver  Resolver
}

// Locator implements probe.Locator.
type Locator struct {
	baseURL  string
	client   *resty.Client
	resolver Resolver
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// New builds a Locator with fresh connections per lookup.
func New(cfg Config) *Locator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetTransport(&http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		}).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Locator{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   client,
		resolver: cfg.Resolver,
	}
}

// Locate returns "City, Country" for the URL's host. Every failure yields
// probe.LocationNotFound; the error says why and is nil when the API itself
// reported the failure.
func (l *Locator) Locate(ctx context.Context, rawURL string) (string, error) {
	host := probe.ExtractHostname(rawURL)
	if host == "" {
		return probe.LocationNotFound, fmt.Errorf("locate %q: empty hostname", rawURL)
	}
	ip, err := l.resolve(ctx, host)
	if err != nil {
		return probe.LocationNotFound, err
	}

	resp, err := l.client.R().
		SetContext(ctx).
		SetResult(&apiResponse{}).
		ForceContentType("application/json").
		Get(l.baseURL + "/" + url.PathEscape(ip))
	if err != nil {
		return probe.LocationNotFound, fmt.Errorf("geolocation request for %s: %w", ip, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return probe.LocationNotFound, fmt.Errorf("geolocation request for %s: unexpected status %d", ip, resp.StatusCode())
	}

	body, ok := resp.Result().(*apiResponse)
	if !ok || body == nil {
		return probe.LocationNotFound, fmt.Errorf("geolocation request for %s: empty response", ip)
	}
	return FormatLocation(body.Status, body.City, body.Country), nil
}

// FormatLocation renders an API answer. Only status "success" produces a
// location; missing components become probe.Unknown.
func FormatLocation(status, city, country string) string {
	if status != "success" {
		return probe.LocationNotFound
	}
	if city == "" {
		city = probe.Unknown
	}
	if country == "" {
		country = probe.Unknown
	}
	return city + ", " + country
}

// resolve prefers an IPv4 address, matching what most geolocation APIs key on.
func (l *Locator) resolve(ctx context.Context, host string) (string, error) {
	addrs, err := l.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolve %s: no addresses", host)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}
