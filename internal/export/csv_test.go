package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/websight/internal/probe"
	"github.com/JakeFAU/websight/internal/storage/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type failingBlobs struct{}

func (failingBlobs) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket gone")
}

func sampleRecords() []probe.Record {
	status := 200
	load := 0.4
	issuer := "R11"
	expiry := "20260201"
	return []probe.Record{
		{
			URL:                 "https://example.com",
			StatusCode:          &status,
			LoadTimeSeconds:     &load,
			SSLIssuerCommonName: &issuer,
			SSLExpiry:           &expiry,
			PageTitle:           "Example Domain",
			MetaDescription:     `Quotes "and", commas`,
			ServerLocation:      "Ashburn, United States",
			DateTested:          "2025-01-02 03:04:05",
		},
		{
			URL:             "https://down.invalid",
			PageTitle:       probe.Unavailable,
			MetaDescription: probe.Unavailable,
			ServerLocation:  probe.LocationNotFound,
			DateTested:      "2025-01-02 03:04:09",
		},
	}
}

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore("session")
	for _, r := range sampleRecords() {
		store.Append(r)
	}
	blobs := memory.NewBlobStore()
	clk := fixedClock{t: time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)}

	msg, err := NewExporter(store, blobs, clk, "", nil).Export(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Data exported to CSV: memory://website_metrics_20250102_030405.csv", msg)

	obj, ok := blobs.Get("website_metrics_20250102_030405.csv")
	require.True(t, ok)
	require.Equal(t, ContentType, obj.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(obj.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, probe.Columns(), rows[0])
	assert.Equal(t, []string{
		"https://example.com", "200", "0.4", "R11", "20260201",
		"Example Domain", `Quotes "and", commas`, "Ashburn, United States", "2025-01-02 03:04:05",
	}, rows[1])
	assert.Equal(t, []string{
		"https://down.invalid", "unavailable", "unavailable", "unavailable", "unavailable",
		"unavailable", "unavailable", "Location not found", "2025-01-02 03:04:09",
	}, rows[2])
}

func TestExportEmptyStoreIsNoop(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	msg, err := NewExporter(memory.NewRecordStore("s"), blobs, fixedClock{t: time.Now()}, "", nil).
		Export(context.Background())
	require.NoError(t, err)
	require.Empty(t, msg)
	require.Empty(t, blobs.Paths())
}

func TestExportUsesPrefix(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore("s")
	store.Append(sampleRecords()[0])
	blobs := memory.NewBlobStore()
	clk := fixedClock{t: time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC)}

	msg, err := NewExporter(store, blobs, clk, "/exports/daily/", nil).Export(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"exports/daily/website_metrics_20241231_235959.csv"}, blobs.Paths())
	require.True(t, strings.HasSuffix(msg, "exports/daily/website_metrics_20241231_235959.csv"))
}

func TestExportSurfacesStorageFailure(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore("s")
	store.Append(sampleRecords()[0])
	_, err := NewExporter(store, failingBlobs{}, fixedClock{t: time.Now()}, "", nil).Export(context.Background())
	require.ErrorContains(t, err, "bucket gone")
}

func TestWriteCSVEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	require.Equal(t, strings.Join(probe.Columns(), ",")+"\n", buf.String())
}

func TestFileName(t *testing.T) {
	t.Parallel()
	require.Equal(t, "website_metrics_20250102_030405.csv", FileName("20250102_030405"))
}
