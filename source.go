package heartboard

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

const defaultSourceTimeout = 10 * time.Second

// Source is an upstream HTTP endpoint that reports a user's heart rate.
//
// Source is immutable after creation via [NewSource]. Getters return copies
// of mutable data.
type Source struct {
	name      string
	user      string
	url       string
	method    string
	headers   map[string]string
	timeout   time.Duration
	interval  time.Duration
	extractor RateExtractor
}

// Name returns the source's display name. Names must be unique per Heartboard.
func (s Source) Name() string { return s.name }

// User returns the user name readings from this source are recorded under.
func (s Source) User() string { return s.user }

// URL returns the URL that is fetched.
func (s Source) URL() string { return s.url }

// Method returns the HTTP method, or "" for GET.
func (s Source) Method() string { return s.method }

// Headers returns a copy of the custom request headers.
func (s Source) Headers() map[string]string { return copyMap(s.headers) }

// Timeout returns the request timeout. Defaults to 10 seconds.
func (s Source) Timeout() time.Duration { return s.timeout }

// Interval returns the source's own fetch interval, or 0 to use the global
// polling interval.
func (s Source) Interval() time.Duration { return s.interval }

// Extractor returns the [RateExtractor]; nil means [DefaultExtractor].
func (s Source) Extractor() RateExtractor { return s.extractor }

// NewSource creates a [Source] that records readings for user.
//
// The rawURL parameter must be an absolute http:// or https:// URL.
//
// Example:
//
//	src, err := heartboard.NewSource("watch", "bob", "https://bridge.example.com/bob",
//	    heartboard.WithHeaders("Authorization", "Bearer token"),
//	    heartboard.WithTimeout(2 * time.Second),
//	)
func NewSource(name, user, rawURL string, opts ...SourceOption) (Source, error) {
	if name == "" {
		return Source{}, errors.New("source name cannot be empty")
	}
	if user == "" {
		return Source{}, errors.New("source user cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Source{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Source{}, errors.New("URL must have a scheme (http:// or https://)")
	}

	cfg := &sourceConfig{
		headers: make(map[string]string),
		timeout: defaultSourceTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	return Source{
		name:      name,
		user:      user,
		url:       rawURL,
		method:    cfg.method,
		headers:   cfg.headers,
		timeout:   cfg.timeout,
		interval:  cfg.interval,
		extractor: cfg.extractor,
	}, nil
}

// sourceConfig holds mutable state during source construction.
type sourceConfig struct {
	method    string
	headers   map[string]string
	timeout   time.Duration
	interval  time.Duration
	extractor RateExtractor
}

// SourceOption configures a [Source] during construction.
type SourceOption func(*sourceConfig) error

// WithMethod sets the HTTP method: GET, HEAD or POST.
func WithMethod(method string) SourceOption {
	return func(cfg *sourceConfig) error {
		switch method {
		case http.MethodGet, http.MethodHead, http.MethodPost:
			cfg.method = method
			return nil
		default:
			return errors.New("method must be GET, HEAD, or POST")
		}
	}
}

// WithHeaders adds request headers as key-value pairs.
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) SourceOption {
	return func(cfg *sourceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithInterval sets how often this source is fetched, overriding
// [WithPollingInterval]. Must be between 1s and 1h.
func WithInterval(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d < time.Second || d > time.Hour {
			return errors.New("interval must be between 1s and 1h")
		}
		cfg.interval = d
		return nil
	}
}

// WithExtractor sets how the heart rate is read from responses.
func WithExtractor(e RateExtractor) SourceOption {
	return func(cfg *sourceConfig) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		cfg.extractor = e
		return nil
	}
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
