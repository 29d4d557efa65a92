package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Sample holds the outcome of fetching a single source.
type Sample struct {
	// SourceName is the display name of the source.
	SourceName string

	// User is the user the reading is recorded for.
	User string

	// URL is the source URL that was fetched.
	URL string

	// HeartRate is the extracted value. Only meaningful when Error is nil.
	HeartRate float64

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// FetchedAt is the timestamp when the fetch finished.
	FetchedAt time.Time

	// StatusCode is the HTTP status code returned by the source.
	StatusCode int

	// Error is set when the request failed or no heart rate could be extracted.
	Error error
}

// RateExtractor reads a heart rate out of an HTTP response.
type RateExtractor func(body []byte, statusCode int) (float64, error)

// SourceInfo contains the configuration needed to fetch a single source.
type SourceInfo struct {
	// Name is the display name of the source. Names must be unique.
	Name string

	// User is the user name readings from this source are recorded under.
	User string

	// URL is the target URL to fetch.
	URL string

	// Method is the HTTP method. Empty defaults to GET.
	Method string

	// Headers contains custom HTTP headers to send with requests.
	Headers map[string]string

	// Timeout is the per-request timeout duration.
	Timeout time.Duration

	// Interval is the fetch interval for this source.
	// If 0, the scheduler's global interval is used.
	Interval time.Duration

	// Extractor turns the response into a heart rate. Must not be nil.
	Extractor RateExtractor
}

// Scheduler manages periodic fetching of multiple sources.
//
// All sources are fetched immediately on start. After that the scheduler
// ticks at the GCD of all source intervals and fetches only the sources
// that are due. Samples are emitted on [Scheduler.Samples].
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	sources        []SourceInfo
	interval       time.Duration
	maxConcurrency int
	client         *Client
	samples        chan Sample
	logger         *slog.Logger
	cancel         context.CancelFunc
	wg             sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	lastFetchedAt map[string]time.Time
	baseInterval  time.Duration
}

// NewScheduler creates a new [Scheduler].
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop].
func NewScheduler(sources []SourceInfo, interval time.Duration, maxConcurrency int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sources:        sources,
		interval:       interval,
		maxConcurrency: maxConcurrency,
		client:         NewClient(logger),
		samples:        make(chan Sample, len(sources)),
		logger:         logger,
	}
}

// Samples returns the channel samples are emitted on. It is closed when the
// scheduler stops.
func (s *Scheduler) Samples() <-chan Sample {
	return s.samples
}

// calculateBaseInterval returns the GCD of all source intervals, floored
// at one second.
func (s *Scheduler) calculateBaseInterval() time.Duration {
	if len(s.sources) == 0 {
		return s.interval
	}

	result := time.Duration(0)
	for _, src := range s.sources {
		d := src.Interval
		if d <= 0 {
			d = s.interval
		}
		result = gcdDuration(result, d)
	}

	if result < time.Second {
		result = time.Second
	}
	return result
}

func gcdDuration(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Start begins the fetch loop in a background goroutine.
//
// Start is idempotent; calls after the first, or after Stop, are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastFetchedAt = make(map[string]time.Time, len(s.sources))
	s.baseInterval = s.calculateBaseInterval()

	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.samples) })

		s.fetchDueSources(loopCtx, true)

		ticker := time.NewTicker(s.baseInterval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.fetchDueSources(loopCtx, false)
			}
		}
	}()
}

// Stop halts the scheduler, waits for in-flight fetches and closes the
// samples channel. Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.client.Close()
	s.closeOnce.Do(func() { close(s.samples) })
}

// fetchDueSources fetches the sources whose interval has elapsed, or all of
// them when immediate is set. lastFetchedAt is updated when a fetch starts.
func (s *Scheduler) fetchDueSources(ctx context.Context, immediate bool) {
	now := time.Now()
	due := make([]SourceInfo, 0, len(s.sources))

	s.mu.Lock()
	for _, src := range s.sources {
		interval := src.Interval
		if interval <= 0 {
			interval = s.interval
		}

		last, seen := s.lastFetchedAt[src.Name]
		if immediate || !seen || now.Sub(last) >= interval {
			due = append(due, src)
			s.lastFetchedAt[src.Name] = now
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return
	}
	s.fetchSources(ctx, due)
}

// fetchSources fetches sources concurrently, at most maxConcurrency at a time.
func (s *Scheduler) fetchSources(ctx context.Context, sources []SourceInfo) {
	var g errgroup.Group
	g.SetLimit(max(s.maxConcurrency, 1))

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		src := src
		g.Go(func() error {
			sample := s.client.Read(ctx, src)
			select {
			case s.samples <- sample:
			case <-ctx.Done():
			}
			return nil
		})
	}
	_ = g.Wait()
}
