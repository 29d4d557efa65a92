// Package config provides YAML configuration parsing for Heartboard.
//
// This package enables running Heartboard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
// Every field is optional; an empty file yields a service on port 8080
// with no sources.
//
// Example configuration:
//
//	title: Ward 7
//	port: 8080
//	history_limit: 100
//	poll_interval: 15s
//
//	sources:
//	  - name: bedside-3
//	    user: alice
//	    url: ${SENSOR_URL:-http://localhost:9100}/reading
//	    extractor: json:data.bpm
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed polling interval.
const minPollInterval = 1 * time.Second

const (
	defaultPort                = 8080
	defaultHistoryLimit        = 100
	defaultHistoryRequestLimit = 50
	defaultPollInterval        = 15 * time.Second
)

// Config is the root configuration structure for Heartboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Heartboard" if not set.
	Title string `yaml:"title"`

	// Host is the interface to listen on. Defaults to 0.0.0.0.
	Host string `yaml:"host"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// HistoryLimit is how many readings are kept per user. Defaults to 100.
	HistoryLimit int `yaml:"history_limit"`

	// DefaultHistoryLimit is the number of readings the history endpoint
	// returns when no limit query parameter is given. Defaults to 50.
	DefaultHistoryLimit int `yaml:"default_history_limit"`

	// PollInterval is the default time between source fetches.
	// Defaults to 15s.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxConcurrency caps concurrent source fetches. Zero keeps the SDK default.
	MaxConcurrency int `yaml:"max_concurrency"`

	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string `yaml:"log_level"`

	// Sources are upstream endpoints polled for readings.
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig defines a single upstream heart-rate source.
type SourceConfig struct {
	// Name identifies the source in logs. Must be unique.
	Name string `yaml:"name"`

	// User is the name readings from this source are recorded under.
	User string `yaml:"user"`

	// URL is the upstream endpoint.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Method is the HTTP method (GET, HEAD, POST). Defaults to GET.
	Method string `yaml:"method"`

	// Timeout is the request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Extractor determines how the heart rate is read from the response.
	Extractor ExtractorConfig `yaml:"extractor"`

	// Interval overrides poll_interval for this source.
	// Must be between 1s and 1h.
	Interval Duration `yaml:"interval"`
}

// ExtractorConfig specifies how to read a heart rate from a response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	extractor: json:heartRate
//	extractor: json:data.bpm
//	extractor: text
//	extractor: default
//
// Structured object:
//
//	extractor:
//	  type: json
//	  path: data.bpm
type ExtractorConfig struct {
	// Type is the extractor type: "default", "json", "text".
	Type string

	// Path is the JSON field path (for type: json).
	Path string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ExtractorConfig.
func (e *ExtractorConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return e.parseShorthand(s)
	case yaml.MappingNode:
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type string `yaml:"type"`
			Path string `yaml:"path"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		e.Type = raw.Type
		e.Path = raw.Path
		return nil
	}
	return fmt.Errorf("extractor must be a string or object, got %v", node.Kind)
}

// parseShorthand parses "default", "text" or "json:path".
func (e *ExtractorConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if typ, path, ok := strings.Cut(s, ":"); ok {
		if typ != "json" {
			return fmt.Errorf("unknown extractor type %q", typ)
		}
		e.Type = typ
		e.Path = path
		return nil
	}

	switch s {
	case "default", "text":
		e.Type = s
	default:
		return fmt.Errorf("unknown extractor %q (expected 'default', 'text' or 'json:path')", s)
	}
	return nil
}

// SlogLevel maps LogLevel to a [slog.Level].
func (c *Config) SlogLevel() slog.Level {
	level, _ := ParseLogLevel(c.LogLevel)
	return level
}

// ParseLogLevel parses debug, info, warn or error. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", s)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in source URLs and header values.
// Defaults are applied for Port (8080), HistoryLimit (100),
// DefaultHistoryLimit (50) and PollInterval (15s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.DefaultHistoryLimit == 0 {
		c.DefaultHistoryLimit = defaultHistoryRequestLimit
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	if c.DefaultHistoryLimit < 0 {
		return fmt.Errorf("default_history_limit must be positive, got %d", c.DefaultHistoryLimit)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency cannot be negative, got %d", c.MaxConcurrency)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	seen := make(map[string]int, len(c.Sources))
	for i := range c.Sources {
		src := &c.Sources[i]

		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if prev, dup := seen[src.Name]; dup {
			return fmt.Errorf("sources[%d] (%s): duplicate name, first used by sources[%d]", i, src.Name, prev)
		}
		seen[src.Name] = i

		if src.User == "" {
			return fmt.Errorf("sources[%d] (%s): user is required", i, src.Name)
		}

		if src.URL == "" {
			return fmt.Errorf("sources[%d] (%s): url is required", i, src.Name)
		}
		expanded, err := expandEnvVars(src.URL)
		if err != nil {
			return fmt.Errorf("sources[%d] (%s): url: %w", i, src.Name, err)
		}
		src.URL = expanded

		parsedURL, err := url.Parse(src.URL)
		if err != nil {
			return fmt.Errorf("sources[%d] (%s): invalid url: %w", i, src.Name, err)
		}
		if parsedURL.Scheme == "" {
			return fmt.Errorf("sources[%d] (%s): url must have a scheme (http:// or https://)", i, src.Name)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("sources[%d] (%s): url scheme must be http or https, got %q", i, src.Name, parsedURL.Scheme)
		}

		for k, v := range src.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("sources[%d] (%s): headers[%s]: %w", i, src.Name, k, err)
			}
			src.Headers[k] = expanded
		}

		if src.Method != "" && src.Method != "GET" && src.Method != "HEAD" && src.Method != "POST" {
			return fmt.Errorf("sources[%d] (%s): method must be GET, HEAD, or POST", i, src.Name)
		}

		if src.Timeout != 0 && src.Timeout.Duration() < time.Second {
			return fmt.Errorf("sources[%d] (%s): timeout must be at least 1s if specified, got %s",
				i, src.Name, src.Timeout.Duration())
		}

		if src.Interval != 0 {
			if src.Interval.Duration() < time.Second {
				return fmt.Errorf("sources[%d] (%s): interval must be at least 1s, got %s",
					i, src.Name, src.Interval.Duration())
			}
			if src.Interval.Duration() > time.Hour {
				return fmt.Errorf("sources[%d] (%s): interval must not exceed 1h, got %s",
					i, src.Name, src.Interval.Duration())
			}
		}

		if err := validateExtractor(src.Extractor, fmt.Sprintf("sources[%d] (%s)", i, src.Name)); err != nil {
			return err
		}
	}

	return nil
}

// validateExtractor validates an extractor configuration.
func validateExtractor(e ExtractorConfig, context string) error {
	switch e.Type {
	case "", "default", "text":
		return nil
	case "json":
		if e.Path == "" {
			return fmt.Errorf("%s: extractor type 'json' requires a path", context)
		}
		return nil
	}
	return fmt.Errorf("%s: unknown extractor type %q", context, e.Type)
}
