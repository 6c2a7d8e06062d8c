package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/websight/internal/metrics"
)

// Config controls Orchestrator behavior.
type Config struct {
	// UserAgent is sent on the speed and SEO requests.
	UserAgent string
	// StageTimeout bounds each of the four stages independently.
	StageTimeout time.Duration
	// Topic receives one notification per probe when a Publisher is set.
	Topic string
}

// Orchestrator runs the four fetchers for one URL and stores the merged record.
type Orchestrator struct {
	speed     SpeedProber
	tls       TLSInspector
	seo       SEOExtractor
	locator   Locator
	store     RecordStore
	publisher Publisher
	clock     Clock
	cfg       Config
	logger    *zap.Logger
}

// NewOrchestrator constructs an Orchestrator. publisher may be nil.
func NewOrchestrator(
	speed SpeedProber,
	tls TLSInspector,
	seo SEOExtractor,
	locator Locator,
	store RecordStore,
	publisher Publisher,
	clock Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 10 * time.Second
	}
	return &Orchestrator{
		speed:     speed,
		tls:       tls,
		seo:       seo,
		locator:   locator,
		store:     store,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Probe runs every stage sequentially, appends the merged record to the
// store, and returns it. A non-nil error joins one *StageError per failed
// stage; the returned record is stored and valid in that case too.
func (o *Orchestrator) Probe(ctx context.Context, rawURL string) (Record, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Record{}, ErrEmptyURL
	}
	headers := o.headers()
	record := Record{
		URL:             rawURL,
		PageTitle:       Unavailable,
		MetaDescription: Unavailable,
		ServerLocation:  LocationNotFound,
	}
	var failures []error

	speed, err := runStage(ctx, o.cfg.StageTimeout, func(stageCtx context.Context) (SpeedResult, error) {
		return o.speed.Measure(stageCtx, rawURL, headers)
	})
	if o.observe(rawURL, StageSpeed, err, &failures) {
		status := speed.StatusCode
		load := speed.LoadTimeSeconds
		record.StatusCode = &status
		record.LoadTimeSeconds = &load
		metrics.ObserveLoadTime(rawURL, load)
	}

	cert, err := runStage(ctx, o.cfg.StageTimeout, func(stageCtx context.Context) (TLSResult, error) {
		return o.tls.Inspect(stageCtx, rawURL, headers)
	})
	if o.observe(rawURL, StageTLS, err, &failures) {
		issuer := cert.IssuerCommonName
		expiry := cert.Expiry
		record.SSLIssuerCommonName = &issuer
		record.SSLExpiry = &expiry
	}

	seo, err := runStage(ctx, o.cfg.StageTimeout, func(stageCtx context.Context) (SEOResult, error) {
		return o.seo.Extract(stageCtx, rawURL, headers)
	})
	if o.observe(rawURL, StageSEO, err, &failures) {
		record.PageTitle = seo.PageTitle
		record.MetaDescription = seo.MetaDescription
	}

	location, err := runStage(ctx, o.cfg.StageTimeout, func(stageCtx context.Context) (string, error) {
		return o.locator.Locate(stageCtx, rawURL)
	})
	if err != nil {
		// Geolocation degrades to its sentinel and never fails the probe.
		o.logger.Warn("geolocation degraded", zap.String("url", rawURL), zap.Error(err))
		metrics.ObserveStage(string(StageGeo), "degraded")
	} else {
		metrics.ObserveStage(string(StageGeo), "ok")
	}
	if location != "" {
		record.ServerLocation = location
	}

	record.DateTested = o.clock.Now().Format(DateTestedLayout)
	o.store.Append(record)
	o.publish(ctx, record)

	fields := []zap.Field{
		zap.String("url", rawURL),
		zap.Strings("failed_stages", stageNames(failures)),
		zap.Int("stored_records", o.store.Len()),
	}
	if record.StatusCode != nil && record.LoadTimeSeconds != nil {
		fields = append(fields,
			zap.Int("status_code", *record.StatusCode),
			zap.Float64("load_time_seconds", *record.LoadTimeSeconds),
		)
	}
	o.logger.Info("probe completed", fields...)
	return record, errors.Join(failures...)
}

func (o *Orchestrator) headers() http.Header {
	h := http.Header{}
	if o.cfg.UserAgent != "" {
		h.Set("User-Agent", o.cfg.UserAgent)
	}
	return h
}

// observe records the stage outcome and reports whether the stage succeeded.
func (o *Orchestrator) observe(rawURL string, stage Stage, err error, failures *[]error) bool {
	if err == nil {
		metrics.ObserveStage(string(stage), "ok")
		return true
	}
	metrics.ObserveStage(string(stage), "failed")
	o.logger.Warn("probe stage failed",
		zap.String("url", rawURL),
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
	*failures = append(*failures, &StageError{Stage: stage, Err: err})
	return false
}

func (o *Orchestrator) publish(ctx context.Context, record Record) {
	if o.publisher == nil || o.cfg.Topic == "" {
		return
	}
	id, err := o.publisher.Publish(ctx, o.cfg.Topic, record)
	if err != nil {
		o.logger.Warn("publish probe record failed", zap.String("url", record.URL), zap.Error(err))
		return
	}
	o.logger.Debug("probe record published", zap.String("url", record.URL), zap.String("message_id", id))
}

// runStage executes fn under its own timeout. A panic in fn becomes an error.
func runStage[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (result T, err error) {
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage panicked: %v", rec)
		}
	}()
	return fn(stageCtx)
}

func stageNames(failures []error) []string {
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		var se *StageError
		if errors.As(f, &se) {
			names = append(names, string(se.Stage))
		}
	}
	return names
}
