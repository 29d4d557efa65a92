package config

import (
	"log/slog"
	"sort"

	"github.com/jpalmerr/heartboard"
)

// BuildSources converts the configured sources into SDK Source objects.
func BuildSources(cfg *Config) ([]heartboard.Source, error) {
	sources := make([]heartboard.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		src, err := buildSource(sc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// BuildOptions converts the whole configuration into options for
// [heartboard.New]. The logger, when non-nil, is passed through.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]heartboard.Option, error) {
	sources, err := BuildSources(cfg)
	if err != nil {
		return nil, err
	}

	opts := []heartboard.Option{
		heartboard.WithPort(cfg.Port),
		heartboard.WithHistoryLimit(cfg.HistoryLimit),
		heartboard.WithDefaultHistoryLimit(cfg.DefaultHistoryLimit),
		heartboard.WithPollingInterval(cfg.PollInterval.Duration()),
	}
	if cfg.Host != "" {
		opts = append(opts, heartboard.WithHost(cfg.Host))
	}
	if cfg.Title != "" {
		opts = append(opts, heartboard.WithTitle(cfg.Title))
	}
	if cfg.MaxConcurrency > 0 {
		opts = append(opts, heartboard.WithMaxConcurrency(cfg.MaxConcurrency))
	}
	if len(sources) > 0 {
		opts = append(opts, heartboard.WithSources(sources...))
	}
	if logger != nil {
		opts = append(opts, heartboard.WithLogger(logger))
	}
	return opts, nil
}

// buildSource converts a single SourceConfig to an SDK Source.
func buildSource(sc SourceConfig) (heartboard.Source, error) {
	var opts []heartboard.SourceOption

	if sc.Method != "" {
		opts = append(opts, heartboard.WithMethod(sc.Method))
	}
	if sc.Timeout != 0 {
		opts = append(opts, heartboard.WithTimeout(sc.Timeout.Duration()))
	}
	if len(sc.Headers) > 0 {
		opts = append(opts, heartboard.WithHeaders(mapToKeyValuePairs(sc.Headers)...))
	}
	if extractor := buildExtractor(sc.Extractor); extractor != nil {
		opts = append(opts, heartboard.WithExtractor(extractor))
	}
	if sc.Interval != 0 {
		opts = append(opts, heartboard.WithInterval(sc.Interval.Duration()))
	}

	return heartboard.NewSource(sc.Name, sc.User, sc.URL, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildExtractor converts ExtractorConfig to a RateExtractor.
// Returns nil for default/empty extractors (SDK uses DefaultExtractor).
func buildExtractor(ec ExtractorConfig) heartboard.RateExtractor {
	switch ec.Type {
	case "json":
		return heartboard.JSONFieldExtractor(ec.Path)
	case "text":
		return heartboard.PlainTextExtractor
	default:
		return nil
	}
}
