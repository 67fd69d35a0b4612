// Package service wires the crawler, the snapshot store and the refresh
// machinery into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/solvedboard/internal/adapters/mq/queue"
	"github.com/okian/solvedboard/internal/adapters/mq/worker"
	"github.com/okian/solvedboard/internal/adapters/repository"
	"github.com/okian/solvedboard/internal/adapters/roster"
	"github.com/okian/solvedboard/internal/adapters/scrape"
	"github.com/okian/solvedboard/internal/adapters/source"
	"github.com/okian/solvedboard/internal/config"
	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/internal/pipeline"
	"github.com/okian/solvedboard/internal/scheduler"
	"github.com/okian/solvedboard/pkg/logger"
	"github.com/okian/solvedboard/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Service implements the API dependencies for the snapshot board.
type Service struct {
	mu sync.RWMutex

	cfg        *config.Config
	clock      clockwork.Clock
	httpClient *http.Client
	logger     logger.Logger

	// Core components
	store     *repository.SnapshotStore
	queue     *queue.InMemoryQueue
	worker    *worker.Worker
	pipeline  *pipeline.Pipeline
	scheduler *scheduler.Scheduler

	// State
	started bool
	stopped bool
	cancel  context.CancelFunc
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults are used otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock injects the clock used by the scheduler and the pipeline.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithHTTPClient sets the client used for upstream requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// New constructs a Service and its components. Nothing runs until Start.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cfg:   config.New(),
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) build() error {
	cfg := s.cfg
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	hour, minute, err := cfg.DailyTime()
	if err != nil {
		return err
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: cfg.RequestTimeout()}
	}

	client := source.New(cfg.APIBaseURL,
		source.WithHTTPClient(s.httpClient),
		source.WithRetry(cfg.RetryMaxAttempts,
			time.Duration(cfg.RetryInitialMS)*time.Millisecond,
			time.Duration(cfg.RetryMaxMS)*time.Millisecond),
		source.WithMaxPages(cfg.MaxPages),
		source.WithLogger(s.logger.Named("source")))

	var primary roster.HandleSource = client
	rosterOpts := []roster.Option{roster.WithMaxPages(cfg.MaxPages), roster.WithLogger(s.logger.Named("roster"))}
	if cfg.ScrapeEnabled || cfg.RosterSource == config.RosterSourceScrape {
		scraper := scrape.New(cfg.ScrapeBaseURL,
			scrape.WithHTTPClient(s.httpClient),
			scrape.WithMaxPages(cfg.MaxPages),
			scrape.WithLogger(s.logger.Named("scrape")))
		if cfg.RosterSource == config.RosterSourceScrape {
			primary = scraper
			rosterOpts = append(rosterOpts, roster.WithFallback(client))
		} else {
			rosterOpts = append(rosterOpts, roster.WithFallback(scraper))
		}
	}

	s.store = repository.NewSnapshotStore(cfg.DataDir,
		repository.WithLocation(loc),
		repository.WithHistory(true),
		repository.WithLogger(s.logger.Named("repository")))
	s.pipeline = pipeline.New(client, roster.New(client, primary, rosterOpts...), s.store,
		pipeline.WithOrganization(cfg.OrganizationName, cfg.OrganizationCategory),
		pipeline.WithWorkers(cfg.WorkerCount),
		pipeline.WithClock(s.clock),
		pipeline.WithLogger(s.logger.Named("pipeline")))
	s.queue = queue.NewInMemoryQueue()
	s.worker = worker.New(s.queue, s.pipeline,
		worker.WithName("refresh"),
		worker.WithLogger(s.logger),
		worker.WithRunTimeout(cfg.RunTimeout()),
		worker.WithClock(s.clock))
	s.scheduler = scheduler.New(s.queue, s.store,
		scheduler.WithDailyAt(hour, minute),
		scheduler.WithLocation(loc),
		scheduler.WithCheckInterval(cfg.CheckInterval()),
		scheduler.WithMaxAge(cfg.RefreshInterval()),
		scheduler.WithBusy(s.worker.Busy),
		scheduler.WithClock(s.clock),
		scheduler.WithLogger(s.logger.Named("scheduler")))
	return nil
}

// Start loads the persisted snapshot, then starts the refresh worker and the
// scheduler. Without a snapshot on disk the scheduler's first check requests
// a bootstrap refresh.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.logger.Info(ctx, "starting snapshot service...",
		logger.String("organization", s.cfg.OrganizationName),
		logger.String("data_dir", s.cfg.DataDir))

	snap, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, model.ErrNoSnapshot):
		s.logger.Info(ctx, "no snapshot on disk, data syncing")
	case err != nil:
		s.logger.Warn(ctx, "persisted snapshot unreadable, data syncing", logger.Error(err))
	default:
		s.logger.Info(ctx, "snapshot loaded",
			logger.String("updated_at", snap.UpdatedAt.Format(time.RFC3339)),
			logger.Int("members", len(snap.Members)))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.worker.Run(runCtx)
	s.scheduler.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "snapshot service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Duration("check_interval", s.cfg.CheckInterval()))
	return nil
}

// Stop gracefully shuts down the service. A running refresh gets a short
// grace period before it is cancelled.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping snapshot service...")

	_ = s.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "refresh worker did not stop in time", logger.Error(err))
	}
	s.cancel()
	_ = s.queue.Close()

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "snapshot service stopped")
}

// Snapshot returns the published snapshot, or model.ErrNoSnapshot.
func (s *Service) Snapshot(_ context.Context) (*model.Snapshot, error) {
	return s.store.Current()
}

// Freshness reports model.ErrNoSnapshot or model.ErrStaleSnapshot.
func (s *Service) Freshness() error {
	return s.scheduler.Freshness()
}

// RequestRefresh enqueues a manual refresh. It returns false when one is
// already pending.
func (s *Service) RequestRefresh(ctx context.Context) (model.RefreshRequest, bool) {
	req := model.RefreshRequest{ID: uuid.NewString(), Trigger: model.TriggerManual, RequestedAt: s.clock.Now()}
	if !s.queue.Enqueue(ctx, req) {
		metrics.RecordRefreshRequest(req.Trigger, "rejected")
		return req, false
	}
	metrics.RecordRefreshRequest(req.Trigger, "accepted")
	s.logger.Info(ctx, "manual refresh requested", logger.String("request_id", req.ID))
	return req, true
}

// Crawl runs the pipeline once in the caller's goroutine and saves the
// snapshot. It is used by the one-shot CLI and must not be mixed with a
// started service.
func (s *Service) Crawl(ctx context.Context) (pipeline.Report, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if started {
		return pipeline.Report{}, fmt.Errorf("crawl: %w", ErrAlreadyStarted)
	}

	if timeout := s.cfg.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := s.pipeline.Run(ctx, model.RefreshRequest{
		ID:          uuid.NewString(),
		Trigger:     model.TriggerManual,
		RequestedAt: s.clock.Now(),
	})
	rep, _ := s.pipeline.LastReport()
	return rep, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"organization": s.cfg.OrganizationName,
		"workerCount":  s.cfg.WorkerCount,
		"refreshing":   s.worker.Busy(),
		"queueLength":  s.queue.Len(ctx),
		"stale":        s.scheduler.Stale(),
	}

	if snap, err := s.store.Current(); err == nil {
		stats["updatedAt"] = snap.UpdatedAt.Format(time.RFC3339)
		stats["members"] = len(snap.Members)
		stats["problems"] = len(snap.Problems)
		metrics.UpdateSnapshotAge(snap.Age(s.clock.Now()))
	}
	if rep, ok := s.pipeline.LastReport(); ok {
		stats["lastRun"] = rep
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return stats
}
