package heartboard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jpalmerr/heartboard/dashboard"
	"github.com/jpalmerr/heartboard/internal/poller"
	"github.com/jpalmerr/heartboard/internal/server"
	"github.com/jpalmerr/heartboard/internal/store"
)

const (
	defaultPollingInterval = 15 * time.Second
	defaultPort            = 8080
	defaultHost            = "0.0.0.0"
	defaultMaxConcurrency  = 10
)

// Heartboard is the heart-rate service: an in-memory store, the HTTP API in
// front of it and optionally a set of sources feeding it.
//
// It is created using [New] with functional options and started with
// [Heartboard.Start]. The caller controls the lifecycle via the context
// passed to Start.
type Heartboard struct {
	title               string
	host                string
	port                int
	defaultHistoryLimit int
	sources             []Source
	pollingInterval     time.Duration
	maxConcurrency      int
	logger              *slog.Logger
	readingCallbacks    []func(Reading)

	store *store.MemoryStore

	mu   sync.Mutex
	addr net.Addr
}

// New creates a new [Heartboard] instance with the given options.
//
// Defaults:
//   - Listen address: 0.0.0.0:8080
//   - History kept per user: 100 readings
//   - History endpoint default limit: 50 readings
//   - Source polling interval: 15 seconds, max concurrency 10
//
// Returns an error if any option is invalid or two sources share a name.
func New(opts ...Option) (*Heartboard, error) {
	cfg := &hbConfig{
		host:            defaultHost,
		port:            defaultPort,
		historyLimit:    store.DefaultHistoryLimit,
		pollingInterval: defaultPollingInterval,
		maxConcurrency:  defaultMaxConcurrency,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(cfg.sources))
	for _, src := range cfg.sources {
		if seen[src.name] {
			return nil, fmt.Errorf("duplicate source name: %q", src.name)
		}
		seen[src.name] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Heartboard{
		title:               cfg.title,
		host:                cfg.host,
		port:                cfg.port,
		defaultHistoryLimit: cfg.defaultHistoryLimit,
		sources:             cfg.sources,
		pollingInterval:     cfg.pollingInterval,
		maxConcurrency:      cfg.maxConcurrency,
		logger:              logger,
		readingCallbacks:    cfg.readingCallbacks,
		store:               store.NewMemoryStore(cfg.historyLimit),
	}, nil
}

// Start serves the API and fetches sources until ctx is cancelled.
//
// Start blocks. It returns nil on graceful shutdown and an error if the
// HTTP server cannot bind its address. All readings are discarded when
// Start returns.
func (hb *Heartboard) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	var wg sync.WaitGroup

	// callbacks subscribe before anything can submit
	if len(hb.readingCallbacks) > 0 {
		ch := hb.store.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range ch {
				reading := Reading{Name: r.Name, HeartRate: r.HeartRate, Timestamp: r.Timestamp}
				for _, cb := range hb.readingCallbacks {
					invokeCallbackSafe(cb, reading, hb.logger)
				}
			}
		}()
		defer func() {
			hb.store.Unsubscribe(ch)
			wg.Wait()
		}()
	}

	httpServer := server.NewServer(hb.store, server.Config{
		Host:                hb.host,
		Port:                hb.port,
		Title:               hb.title,
		DefaultHistoryLimit: hb.defaultHistoryLimit,
	}, dashboard.Assets, hb.logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	hb.mu.Lock()
	hb.addr = httpServer.Addr()
	hb.mu.Unlock()

	hb.logger.Info("heartboard started",
		"addr", httpServer.Addr().String(),
		"history_limit", hb.store.HistoryLimit(),
		"sources", len(hb.sources),
	)

	stopSources := hb.startSources(ctx)

	<-ctx.Done()
	stopSources()
	hb.logger.Info("heartboard stopped")
	return nil
}

// Addr returns the address the API is listening on, or nil before Start.
func (hb *Heartboard) Addr() net.Addr {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return hb.addr
}

// Port returns the configured HTTP port.
func (hb *Heartboard) Port() int {
	return hb.port
}

// Host returns the configured listen interface.
func (hb *Heartboard) Host() string {
	return hb.host
}

// HistoryLimit returns how many readings are kept per user.
func (hb *Heartboard) HistoryLimit() int {
	return hb.store.HistoryLimit()
}

// Sources returns a copy of the configured sources.
func (hb *Heartboard) Sources() []Source {
	cp := make([]Source, len(hb.sources))
	copy(cp, hb.sources)
	return cp
}

// startSources runs the scheduler and records every sample it produces.
// The returned function stops the scheduler and waits for the consumer.
func (hb *Heartboard) startSources(ctx context.Context) func() {
	if len(hb.sources) == 0 {
		return func() {}
	}

	scheduler := poller.NewScheduler(hb.toSourceInfos(), hb.pollingInterval, hb.maxConcurrency, hb.logger)
	scheduler.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for sample := range scheduler.Samples() {
			hb.recordSample(sample)
		}
	}()

	return func() {
		scheduler.Stop()
		wg.Wait()
	}
}

// recordSample submits a fetched reading exactly like an API submission.
func (hb *Heartboard) recordSample(sample poller.Sample) {
	attrs := []any{
		"source", sample.SourceName,
		"name", sample.User,
		"url", sample.URL,
		"latency_ms", sample.Latency.Milliseconds(),
	}
	if sample.Error != nil {
		hb.logger.Warn("source fetch failed", append(attrs, "error", sample.Error.Error())...)
		return
	}

	reading, err := hb.store.Submit(sample.User, sample.HeartRate)
	if err != nil {
		hb.logger.Warn("source reading rejected", append(attrs, "heart_rate", sample.HeartRate, "error", err.Error())...)
		return
	}
	hb.logger.Info("heart rate recorded", append(attrs, "heart_rate", reading.HeartRate, "timestamp", reading.Timestamp)...)
}

// toSourceInfos converts sources to the poller's representation.
func (hb *Heartboard) toSourceInfos() []poller.SourceInfo {
	out := make([]poller.SourceInfo, len(hb.sources))
	for i, src := range hb.sources {
		extractor := src.extractor
		if extractor == nil {
			extractor = DefaultExtractor
		}
		out[i] = poller.SourceInfo{
			Name:      src.name,
			User:      src.user,
			URL:       src.url,
			Method:    src.method,
			Headers:   copyMap(src.headers),
			Timeout:   src.timeout,
			Interval:  src.interval,
			Extractor: poller.RateExtractor(extractor),
		}
	}
	return out
}

// invokeCallbackSafe calls a reading callback with panic recovery.
func invokeCallbackSafe(cb func(Reading), r Reading, logger *slog.Logger) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("reading callback panicked",
				"panic", p,
				"name", r.Name,
			)
		}
	}()
	cb(r)
}
