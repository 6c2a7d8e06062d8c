// Package export serializes the session's probe records to CSV and hands the
// result to a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/websight/internal/metrics"
	"github.com/JakeFAU/websight/internal/probe"
)

const (
	// ContentType is the media type of exported files.
	ContentType = "text/csv"
	// FileTimeLayout is embedded in every export file name.
	FileTimeLayout = "20060102_150405"
	filePrefix     = "website_metrics_"
)

// Source is the read side of the record store.
type Source interface {
	Snapshot() []probe.Record
}

// Exporter writes the current snapshot of a Source as one CSV object.
type Exporter struct {
	source Source
	blobs  probe.BlobStore
	clock  probe.Clock
	prefix string
	logger *zap.Logger
}

// NewExporter builds an Exporter. prefix is prepended to object paths when set.
func NewExporter(source Source, blobs probe.BlobStore, clock probe.Clock, prefix string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		source: source,
		blobs:  blobs,
		clock:  clock,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// Export writes every stored record and returns a confirmation message.
// An empty store is a no-op that returns an empty message.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	records := e.source.Snapshot()
	if len(records) == 0 {
		metrics.ObserveExport("empty")
		return "", nil
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		metrics.ObserveExport("failed")
		return "", err
	}

	objectPath := e.ObjectPath()
	uri, err := e.blobs.PutObject(ctx, objectPath, ContentType, &buf)
	if err != nil {
		metrics.ObserveExport("failed")
		return "", fmt.Errorf("store export %s: %w", objectPath, err)
	}
	metrics.ObserveExport("ok")
	e.logger.Info("records exported", zap.String("uri", uri), zap.Int("records", len(records)))
	return "Data exported to CSV: " + uri, nil
}

// ObjectPath returns the path the next export would be written to.
func (e *Exporter) ObjectPath() string {
	name := FileName(e.clock.Now().Format(FileTimeLayout))
	if e.prefix == "" {
		return name
	}
	return path.Join(e.prefix, name)
}

// FileName returns the export file name for a formatted timestamp.
func FileName(stamp string) string {
	return filePrefix + stamp + ".csv"
}

// WriteCSV renders a header row followed by one row per record.
func WriteCSV(w io.Writer, records []probe.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(probe.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
