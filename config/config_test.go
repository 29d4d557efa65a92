package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_EmptyConfigAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(``))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.HistoryLimit != 100 {
		t.Errorf("HistoryLimit = %d, want 100", cfg.HistoryLimit)
	}
	if cfg.DefaultHistoryLimit != 50 {
		t.Errorf("DefaultHistoryLimit = %d, want 50", cfg.DefaultHistoryLimit)
	}
	if cfg.PollInterval.Duration() != 15*time.Second {
		t.Errorf("PollInterval = %v, want 15s", cfg.PollInterval.Duration())
	}
	if len(cfg.Sources) != 0 {
		t.Errorf("len(Sources) = %d, want 0", len(cfg.Sources))
	}
}

func TestDefault_MatchesEmptyParse(t *testing.T) {
	parsed, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	def := Default()

	if def.Port != parsed.Port || def.HistoryLimit != parsed.HistoryLimit ||
		def.DefaultHistoryLimit != parsed.DefaultHistoryLimit || def.PollInterval != parsed.PollInterval {
		t.Errorf("Default() = %+v, want %+v", def, parsed)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Ward 7
host: 127.0.0.1
port: 9090
history_limit: 20
default_history_limit: 5
poll_interval: 30s
max_concurrency: 4
log_level: debug

sources:
  - name: bedside-3
    user: alice
    url: https://sensors.example.com/3
    method: POST
    timeout: 5s
    interval: 2s
    headers:
      Authorization: Bearer token123
    extractor: json:data.bpm
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Ward 7" || cfg.Host != "127.0.0.1" || cfg.Port != 9090 {
		t.Errorf("title/host/port = %q/%q/%d", cfg.Title, cfg.Host, cfg.Port)
	}
	if cfg.HistoryLimit != 20 || cfg.DefaultHistoryLimit != 5 {
		t.Errorf("limits = %d/%d, want 20/5", cfg.HistoryLimit, cfg.DefaultHistoryLimit)
	}
	if cfg.PollInterval.Duration() != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval.Duration())
	}
	if cfg.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", cfg.MaxConcurrency)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}

	src := cfg.Sources[0]
	if src.Name != "bedside-3" || src.User != "alice" {
		t.Errorf("source = %q/%q", src.Name, src.User)
	}
	if src.URL != "https://sensors.example.com/3" {
		t.Errorf("URL = %q", src.URL)
	}
	if src.Method != "POST" {
		t.Errorf("Method = %q, want POST", src.Method)
	}
	if src.Timeout.Duration() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", src.Timeout.Duration())
	}
	if src.Interval.Duration() != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", src.Interval.Duration())
	}
	if src.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("Headers[Authorization] = %q", src.Headers["Authorization"])
	}
	if src.Extractor.Type != "json" || src.Extractor.Path != "data.bpm" {
		t.Errorf("Extractor = %+v, want json data.bpm", src.Extractor)
	}
}

func TestParse_ExtractorShorthand(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantType string
		wantPath string
	}{
		{"json with path", `extractor: json:heartRate`, "json", "heartRate"},
		{"json with nested path", `extractor: json:data.bpm`, "json", "data.bpm"},
		{"text", `extractor: text`, "text", ""},
		{"default", `extractor: default`, "default", ""},
		{"empty (uses default)", ``, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fullYaml := `
sources:
  - name: s
    user: alice
    url: https://example.com
    ` + tt.yaml

			cfg, err := Parse([]byte(fullYaml))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			e := cfg.Sources[0].Extractor
			if e.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", e.Type, tt.wantType)
			}
			if e.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", e.Path, tt.wantPath)
			}
		})
	}
}

func TestParse_ExtractorStructured(t *testing.T) {
	yaml := `
sources:
  - name: s
    user: alice
    url: https://example.com
    extractor:
      type: json
      path: data.bpm
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	e := cfg.Sources[0].Extractor
	if e.Type != "json" || e.Path != "data.bpm" {
		t.Errorf("Extractor = %+v, want json data.bpm", e)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("SENSOR_HOST", "sensors.internal")
	t.Setenv("SENSOR_TOKEN", "secret")

	yaml := `
sources:
  - name: s
    user: alice
    url: https://${SENSOR_HOST}/bpm
    headers:
      Authorization: Bearer ${SENSOR_TOKEN}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Sources[0].URL != "https://sensors.internal/bpm" {
		t.Errorf("URL = %q", cfg.Sources[0].URL)
	}
	if cfg.Sources[0].Headers["Authorization"] != "Bearer secret" {
		t.Errorf("Authorization = %q", cfg.Sources[0].Headers["Authorization"])
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
sources:
  - name: s
    user: alice
    url: ${HEARTBOARD_TEST_UNSET_URL:-http://localhost:9100}/reading
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Sources[0].URL != "http://localhost:9100/reading" {
		t.Errorf("URL = %q", cfg.Sources[0].URL)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{"port out of range", `port: 70000`, "port must be between"},
		{"negative history limit", `history_limit: -1`, "history_limit must be positive"},
		{"negative default history limit", `default_history_limit: -3`, "default_history_limit must be positive"},
		{"negative max concurrency", `max_concurrency: -1`, "max_concurrency cannot be negative"},
		{"poll interval too short", `poll_interval: 500ms`, "poll_interval must be at least 1s"},
		{"unknown log level", `log_level: loud`, "log_level"},
		{
			name: "source missing name",
			yaml: `
sources:
  - user: alice
    url: https://example.com
`,
			wantErrLike: "sources[0]: name is required",
		},
		{
			name: "source missing user",
			yaml: `
sources:
  - name: s
    url: https://example.com
`,
			wantErrLike: "user is required",
		},
		{
			name: "source missing url",
			yaml: `
sources:
  - name: s
    user: alice
`,
			wantErrLike: "url is required",
		},
		{
			name: "url without scheme",
			yaml: `
sources:
  - name: s
    user: alice
    url: example.com/bpm
`,
			wantErrLike: "url must have a scheme",
		},
		{
			name: "url with ftp scheme",
			yaml: `
sources:
  - name: s
    user: alice
    url: ftp://example.com/bpm
`,
			wantErrLike: "url scheme must be http or https",
		},
		{
			name: "missing env var",
			yaml: `
sources:
  - name: s
    user: alice
    url: https://${HEARTBOARD_TEST_MISSING}/bpm
`,
			wantErrLike: "HEARTBOARD_TEST_MISSING",
		},
		{
			name: "invalid method",
			yaml: `
sources:
  - name: s
    user: alice
    url: https://example.com
    method: DELETE
`,
			wantErrLike: "method must be GET, HEAD, or POST",
		},
		{
			name: "timeout below one second",
			yaml: `
sources:
  - name: s
    user: alice
    url: https://example.com
    timeout: 100ms
`,
			wantErrLike: "timeout must be at least 1s",
		},
		{
			name: "interval too long",
			yaml: `
sources:
  - name: s
    user: alice
    url: https://example.com
    interval: 2h
`,
			wantErrLike: "interval must not exceed 1h",
		},
		{
			name: "interval too short",
			yaml: `
sources:
  - name: s
    user: alice
    url: https://example.com
    interval: 10ms
`,
			wantErrLike: "interval must be at least 1s",
		},
		{
			name: "json extractor without path",
			yaml: `
sources:
  - name: s
    user: alice
    url: https://example.com
    extractor:
      type: json
`,
			wantErrLike: "requires a path",
		},
		{
			name: "unknown extractor shorthand",
			yaml: `
sources:
  - name: s
    user: alice
    url: https://example.com
    extractor: regex:\d+
`,
			wantErrLike: "unknown extractor type",
		},
		{
			name: "duplicate source name",
			yaml: `
sources:
  - name: s
    user: alice
    url: https://example.com
  - name: s
    user: bob
    url: https://example.com
`,
			wantErrLike: "duplicate name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("port: [unterminated"))
	if err == nil || !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("Parse() error = %v, want YAML parse error", err)
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("poll_interval: soon"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("Parse() error = %v, want invalid duration", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartboard.yaml")
	if err := os.WriteFile(path, []byte("port: 9191\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
