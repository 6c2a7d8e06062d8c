package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

// SpeedProber issues one GET and reports status and latency.
type SpeedProber interface {
	Measure(ctx context.Context, rawURL string, headers http.Header) (SpeedResult, error)
}

// TLSInspector reads the leaf certificate served on the URL's host.
type TLSInspector interface {
	Inspect(ctx context.Context, rawURL string, headers http.Header) (TLSResult, error)
}

// SEOExtractor fetches a page and extracts its title and meta description.
type SEOExtractor interface {
	Extract(ctx context.Context, rawURL string, headers http.Header) (SEOResult, error)
}

// Locator maps the URL's host to "City, Country". It always returns a
// displayable value; the error is informational only.
type Locator interface {
	Locate(ctx context.Context, rawURL string) (string, error)
}

// RecordStore is the session-scoped, append-only list of records.
type RecordStore interface {
	Append(record Record)
	Snapshot() []Record
	Len() int
}

// BlobStore writes exported artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes probe notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces session IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
