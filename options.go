package heartboard

import (
	"errors"
	"log/slog"
	"time"
)

// hbConfig holds mutable state during Heartboard construction.
type hbConfig struct {
	title               string
	host                string
	port                int
	historyLimit        int
	defaultHistoryLimit int
	sources             []Source
	pollingInterval     time.Duration
	maxConcurrency      int
	logger              *slog.Logger
	readingCallbacks    []func(Reading)
}

// Option is a function that configures a [Heartboard] instance during construction.
// Options return an error if validation fails.
type Option func(*hbConfig) error

// WithPort sets the HTTP port. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *hbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithHost sets the interface to listen on. Defaults to "0.0.0.0".
func WithHost(host string) Option {
	return func(cfg *hbConfig) error {
		if host == "" {
			return errors.New("host cannot be empty")
		}
		cfg.host = host
		return nil
	}
}

// WithTitle sets the title shown on the landing page.
func WithTitle(title string) Option {
	return func(cfg *hbConfig) error {
		cfg.title = title
		return nil
	}
}

// WithHistoryLimit sets how many readings are kept per user. Older readings
// are evicted first. Defaults to 100.
func WithHistoryLimit(n int) Option {
	return func(cfg *hbConfig) error {
		if n <= 0 {
			return errors.New("history limit must be positive")
		}
		cfg.historyLimit = n
		return nil
	}
}

// WithDefaultHistoryLimit sets how many readings the history endpoint returns
// when the request has no limit parameter. Defaults to 50.
func WithDefaultHistoryLimit(n int) Option {
	return func(cfg *hbConfig) error {
		if n <= 0 {
			return errors.New("default history limit must be positive")
		}
		cfg.defaultHistoryLimit = n
		return nil
	}
}

// WithSource adds a single [Source] to pull readings from.
func WithSource(s Source) Option {
	return func(cfg *hbConfig) error {
		cfg.sources = append(cfg.sources, s)
		return nil
	}
}

// WithSources adds multiple [Source] values.
func WithSources(sources ...Source) Option {
	return func(cfg *hbConfig) error {
		cfg.sources = append(cfg.sources, sources...)
		return nil
	}
}

// WithPollingInterval sets the default interval between fetches of a source.
// Sources with their own [WithInterval] ignore it. Defaults to 15 seconds.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *hbConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithMaxConcurrency limits how many sources are fetched at once. Defaults to 10.
func WithMaxConcurrency(n int) Option {
	return func(cfg *hbConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *hbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithReadingCallback registers a function called for every recorded
// reading, whether it arrived over HTTP or from a source.
//
// Callbacks run on a single goroutine in registration order and must not
// block; a callback that falls more than 100 readings behind misses
// readings. Panics are recovered and logged. Nil callbacks are ignored.
func WithReadingCallback(cb func(Reading)) Option {
	return func(cfg *hbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.readingCallbacks = append(cfg.readingCallbacks, cb)
		return nil
	}
}
