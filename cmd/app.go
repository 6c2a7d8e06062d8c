package cmd

import (
	"context"
	"fmt"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/websight/internal/api"
	"github.com/JakeFAU/websight/internal/clock/system"
	"github.com/JakeFAU/websight/internal/config"
	"github.com/JakeFAU/websight/internal/export"
	collyfetcher "github.com/JakeFAU/websight/internal/fetcher/colly"
	"github.com/JakeFAU/websight/internal/fetcher/tlsinspect"
	"github.com/JakeFAU/websight/internal/geo"
	"github.com/JakeFAU/websight/internal/id/uuid"
	"github.com/JakeFAU/websight/internal/probe"
	pubsubpublisher "github.com/JakeFAU/websight/internal/publisher/pubsub"
	"github.com/JakeFAU/websight/internal/storage/gcs"
	"github.com/JakeFAU/websight/internal/storage/local"
	"github.com/JakeFAU/websight/internal/storage/memory"
)

// services is everything one session needs.
type services struct {
	cfg          config.Config
	logger       *zap.Logger
	clock        probe.Clock
	store        *memory.RecordStore
	orchestrator *probe.Orchestrator
	exporter     *export.Exporter
	closers      []func()
}

func (s *services) Config() config.Config { return s.cfg }

func (s *services) Logger() *zap.Logger { return s.logger }

func (s *services) Clock() probe.Clock { return s.clock }

func (s *services) Session() api.Session { return s.store }

func (s *services) Prober() api.Prober { return s.orchestrator }

func (s *services) Exporter() api.Exporter { return s.exporter }

// Close releases cloud clients in reverse order of creation.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// buildServices wires fetchers, storage, and publishing from cfg.
func buildServices(ctx context.Context, cfg config.Config, logger *zap.Logger) (*services, error) {
	sessionID, err := uuid.New().NewID()
	if err != nil {
		return nil, fmt.Errorf("create session id: %w", err)
	}
	svc := &services{
		cfg:    cfg,
		logger: logger.With(zap.String("session_id", sessionID)),
		clock:  system.New(time.Local),
		store:  memory.NewRecordStore(sessionID),
	}

	blobs, err := svc.blobStore(ctx)
	if err != nil {
		svc.Close()
		return nil, err
	}
	publisher, err := svc.publisher(ctx, sessionID)
	if err != nil {
		svc.Close()
		return nil, err
	}

	timeout := cfg.StageTimeout()
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Probe.UserAgent,
		Timeout:   timeout,
	})
	inspector := tlsinspect.New(tlsinspect.Config{
		Port:    cfg.Probe.TLSPort,
		Timeout: timeout,
	})
	locator := geo.New(geo.Config{
		BaseURL:   cfg.Geo.BaseURL,
		Timeout:   timeout,
		UserAgent: cfg.Probe.UserAgent,
	})

	svc.orchestrator = probe.NewOrchestrator(
		fetcher,
		inspector,
		fetcher,
		locator,
		svc.store,
		publisher,
		svc.clock,
		probe.Config{
			UserAgent:    cfg.Probe.UserAgent,
			StageTimeout: timeout,
			Topic:        cfg.PubSub.TopicName,
		},
		svc.logger.Named("probe"),
	)
	svc.exporter = export.NewExporter(svc.store, blobs, svc.clock, cfg.Export.Prefix, svc.logger.Named("export"))
	return svc, nil
}

func (s *services) blobStore(ctx context.Context) (probe.BlobStore, error) {
	switch s.cfg.Export.Provider {
	case config.ExportProviderGCS:
		store, err := gcs.Open(ctx, gcs.Config{
			Bucket:   s.cfg.Export.GCSBucket,
			Metadata: map[string]string{"session_id": s.store.ID()},
		})
		if err != nil {
			return nil, fmt.Errorf("open gcs export store: %w", err)
		}
		s.closers = append(s.closers, func() {
			if err := store.Close(); err != nil {
				s.logger.Warn("close gcs client failed", zap.Error(err))
			}
		})
		return store, nil
	case config.ExportProviderMemory:
		return memory.NewBlobStore(), nil
	default:
		store, err := local.New(local.Config{BaseDir: s.cfg.Export.Dir})
		if err != nil {
			return nil, fmt.Errorf("open local export store: %w", err)
		}
		return store, nil
	}
}

// publisher returns nil when publishing is disabled; the orchestrator skips it.
func (s *services) publisher(ctx context.Context, sessionID string) (probe.Publisher, error) {
	if !s.cfg.PublishEnabled() {
		return nil, nil
	}
	client, err := gpubsub.NewClient(ctx, s.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	pub := pubsubpublisher.New(client, map[string]string{"session_id": sessionID})
	s.closers = append(s.closers, func() {
		pub.Close()
		if err := client.Close(); err != nil {
			s.logger.Warn("close pubsub client failed", zap.Error(err))
		}
	})
	return pub, nil
}
