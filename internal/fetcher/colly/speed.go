package collyfetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JakeFAU/websight/internal/probe"
)

// Measure issues one GET and reports the status code and the time until the
// response status line and headers arrived, rounded up to 0.1s.
func (f *Fetcher) Measure(ctx context.Context, rawURL string, headers http.Header) (probe.SpeedResult, error) {
	p, err := f.fetch(ctx, rawURL, headers)
	if err != nil {
		return probe.SpeedResult{}, fmt.Errorf("measure load speed: %w", err)
	}
	return probe.SpeedResult{
		StatusCode:      p.statusCode,
		LoadTimeSeconds: probe.LoadTime(p.headerLatency),
	}, nil
}
