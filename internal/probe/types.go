// Package probe defines the probe record schema, per-stage outcomes, and the
// orchestrator that composes the speed, TLS, SEO, and geolocation fetchers.
package probe

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel values used in place of fields a stage could not determine.
const (
	Unavailable      = "unavailable"
	NoTitle          = "No title"
	NoDescription    = "No description"
	LocationNotFound = "Location not found"
	Unknown          = "Unknown"
)

// DateTestedLayout formats Record.DateTested at second precision.
const DateTestedLayout = "2006-01-02 15:04:05"

// ErrEmptyURL is returned when Probe is called without a URL.
var ErrEmptyURL = errors.New("url is required")

// Stage names one of the four fetchers.
type Stage string

// Stage values reported in StageError and metrics labels.
const (
	StageSpeed Stage = "speed"
	StageTLS   Stage = "tls"
	StageSEO   Stage = "seo"
	StageGeo   Stage = "geo"
)

// Record is one merged result of probing a single URL once. Optional fields
// are pointers; nil renders as the Unavailable sentinel.
type Record struct {
	URL                 string   `json:"url"`
	StatusCode          *int     `json:"status_code"`
	LoadTimeSeconds     *float64 `json:"load_time_seconds"`
	SSLIssuerCommonName *string  `json:"ssl_issuer_common_name"`
	SSLExpiry           *string  `json:"ssl_expiry"`
	PageTitle           string   `json:"page_title"`
	MetaDescription     string   `json:"meta_description"`
	ServerLocation      string   `json:"server_location"`
	DateTested          string   `json:"date_tested"`
}

// Columns returns the fixed column set in export order.
func Columns() []string {
	return []string{
		"url",
		"status_code",
		"load_time_seconds",
		"ssl_issuer_common_name",
		"ssl_expiry",
		"page_title",
		"meta_description",
		"server_location",
		"date_tested",
	}
}

// Values renders the record in Columns order with sentinels for absent fields.
func (r Record) Values() []string {
	return []string{
		r.URL,
		intOrSentinel(r.StatusCode),
		floatOrSentinel(r.LoadTimeSeconds),
		stringOrSentinel(r.SSLIssuerCommonName),
		stringOrSentinel(r.SSLExpiry),
		r.PageTitle,
		r.MetaDescription,
		r.ServerLocation,
		r.DateTested,
	}
}

// Map returns the record keyed by column name.
func (r Record) Map() map[string]string {
	cols := Columns()
	vals := r.Values()
	out := make(map[string]string, len(cols))
	for i, c := range cols {
		out[c] = vals[i]
	}
	return out
}

func intOrSentinel(v *int) string {
	if v == nil {
		return Unavailable
	}
	return strconv.Itoa(*v)
}

func floatOrSentinel(v *float64) string {
	if v == nil {
		return Unavailable
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func stringOrSentinel(v *string) string {
	if v == nil || *v == "" {
		return Unavailable
	}
	return *v
}

// SpeedResult is the output of the load-speed stage.
type SpeedResult struct {
	StatusCode      int
	LoadTimeSeconds float64
}

// TLSResult is the output of the TLS stage.
type TLSResult struct {
	IssuerCommonName string
	Expiry           string
}

// SEOResult is the output of the SEO stage.
type SEOResult struct {
	PageTitle       string
	MetaDescription string
}

// StageError reports which fetcher failed for a probe.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStages extracts every StageError joined into err.
func FailedStages(err error) []*StageError {
	if err == nil {
		return nil
	}
	var out []*StageError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, FailedStages(e)...)
		}
		return out
	}
	var se *StageError
	if errors.As(err, &se) {
		out = append(out, se)
	}
	return out
}
