package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func plainExtractor(body []byte, statusCode int) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(body)), 64)
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	s := NewScheduler([]SourceInfo{{Name: "a", URL: "http://example.com", Timeout: time.Second}}, time.Minute, 1, testLogger())
	s.Stop()

	if _, ok := <-s.Samples(); ok {
		t.Error("Samples() should be closed after Stop")
	}
}

func TestScheduler_StopTwice(t *testing.T) {
	s := NewScheduler(nil, time.Minute, 1, testLogger())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}

func TestScheduler_StartAfterStopIsNoop(t *testing.T) {
	s := NewScheduler(nil, time.Minute, 1, testLogger())
	s.Stop()
	s.Start(context.Background())
}

func TestScheduler_FetchesImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("64"))
	}))
	defer server.Close()

	sources := []SourceInfo{
		{Name: "strap", User: "alice", URL: server.URL, Timeout: time.Second, Extractor: plainExtractor},
	}
	s := NewScheduler(sources, time.Minute, 2, testLogger())
	s.Start(context.Background())
	defer s.Stop()

	select {
	case sample := <-s.Samples():
		if sample.Error != nil {
			t.Fatalf("sample error = %v", sample.Error)
		}
		if sample.User != "alice" || sample.SourceName != "strap" {
			t.Errorf("sample = %+v, want alice/strap", sample)
		}
		if sample.HeartRate != 64 {
			t.Errorf("HeartRate = %v, want 64", sample.HeartRate)
		}
		if sample.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want 200", sample.StatusCode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
	}
}

func TestScheduler_RequestErrorReported(t *testing.T) {
	sources := []SourceInfo{
		{Name: "dead", User: "bob", URL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond, Extractor: plainExtractor},
	}
	s := NewScheduler(sources, time.Minute, 1, testLogger())
	s.Start(context.Background())
	defer s.Stop()

	select {
	case sample := <-s.Samples():
		if sample.Error == nil {
			t.Fatal("expected error for unreachable source")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
	}
}

func TestScheduler_ExtractorPanicRecovered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("70"))
	}))
	defer server.Close()

	panicky := func(body []byte, statusCode int) (float64, error) {
		panic("boom")
	}
	sources := []SourceInfo{{Name: "p", User: "carol", URL: server.URL, Timeout: time.Second, Extractor: panicky}}
	s := NewScheduler(sources, time.Minute, 1, testLogger())
	s.Start(context.Background())
	defer s.Stop()

	select {
	case sample := <-s.Samples():
		if sample.Error == nil || !strings.Contains(sample.Error.Error(), "correlation_id") {
			t.Errorf("error = %v, want correlation id", sample.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
	}
}

func TestScheduler_ExtractorErrorPropagated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("70"))
	}))
	defer server.Close()

	errNoRate := errors.New("no rate")
	failing := func(body []byte, statusCode int) (float64, error) { return 0, errNoRate }

	s := NewScheduler([]SourceInfo{{Name: "f", User: "dave", URL: server.URL, Timeout: time.Second, Extractor: failing}}, time.Minute, 1, testLogger())
	s.Start(context.Background())
	defer s.Stop()

	sample := <-s.Samples()
	if !errors.Is(sample.Error, errNoRate) {
		t.Errorf("error = %v, want %v", sample.Error, errNoRate)
	}
}

func TestScheduler_RespectsPerSourceInterval(t *testing.T) {
	var fast, slow atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fast" {
			fast.Add(1)
		} else {
			slow.Add(1)
		}
		_, _ = w.Write([]byte("60"))
	}))
	defer server.Close()

	sources := []SourceInfo{
		{Name: "fast", User: "a", URL: server.URL + "/fast", Timeout: time.Second, Interval: time.Second, Extractor: plainExtractor},
		{Name: "slow", User: "b", URL: server.URL + "/slow", Timeout: time.Second, Interval: time.Hour, Extractor: plainExtractor},
	}
	s := NewScheduler(sources, time.Minute, 2, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	go func() {
		for range s.Samples() {
		}
	}()

	time.Sleep(2500 * time.Millisecond)
	cancel()
	s.Stop()

	if got := fast.Load(); got < 2 {
		t.Errorf("fast source fetched %d times, want >= 2", got)
	}
	if got := slow.Load(); got != 1 {
		t.Errorf("slow source fetched %d times, want 1", got)
	}
}

func TestCalculateBaseInterval(t *testing.T) {
	tests := []struct {
		name      string
		intervals []time.Duration
		global    time.Duration
		want      time.Duration
	}{
		{"no sources", nil, 15 * time.Second, 15 * time.Second},
		{"global only", []time.Duration{0, 0}, 10 * time.Second, 10 * time.Second},
		{"gcd", []time.Duration{10 * time.Second, 15 * time.Second}, time.Minute, 5 * time.Second},
		{"floored", []time.Duration{1500 * time.Millisecond, time.Second}, time.Minute, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sources []SourceInfo
			for i, d := range tt.intervals {
				sources = append(sources, SourceInfo{Name: strconv.Itoa(i), Interval: d})
			}
			s := NewScheduler(sources, tt.global, 1, testLogger())
			if got := s.calculateBaseInterval(); got != tt.want {
				t.Errorf("calculateBaseInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}
