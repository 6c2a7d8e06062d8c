package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if probeStagesTotal == nil || probeLoadTimeSeconds == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveStageCounts(t *testing.T) {
	ObserveStage("tls-test", "failed")
	ObserveStage("tls-test", "failed")

	if val := testutil.ToFloat64(probeStagesTotal.WithLabelValues("tls-test", "failed")); val != 2 {
		t.Errorf("expected 2 failed tls-test stages, got %f", val)
	}
}

func TestObserveExportAndStoredRecords(t *testing.T) {
	ObserveExport("written-test")
	SetStoredRecords(3)

	if val := testutil.ToFloat64(probeExportsTotal.WithLabelValues("written-test")); val != 1 {
		t.Errorf("expected one export, got %f", val)
	}
	if val := testutil.ToFloat64(probeStoredRecords); val != 3 {
		t.Errorf("expected stored records gauge 3, got %f", val)
	}
}

func TestObserveLoadTimeUsesSite(t *testing.T) {
	ObserveLoadTime("https://Load.Example.com/x", 0.4)

	if val := testutil.CollectAndCount(probeLoadTimeSeconds); val <= 0 {
		t.Errorf("expected load time histogram to be observed, got %d", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
