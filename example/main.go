package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/heartboard"
)

func main() {
	// start mock sensor (see mock_sensor.go)
	go StartMockSensor(":9100")
	time.Sleep(100 * time.Millisecond)

	extractor := heartboard.JSONFieldExtractor("data.bpm")

	var sources []heartboard.Source
	for _, user := range []string{"alice", "bob"} {
		src, err := heartboard.NewSource("wristband-"+user, user,
			"http://localhost:9100/reading?user="+user,
			heartboard.WithExtractor(extractor),
		)
		if err != nil {
			slog.Error("failed to create source", "error", err)
			os.Exit(1)
		}
		sources = append(sources, src)
	}

	// a slower chest strap for carol, overriding the global 2s interval
	strap, _ := heartboard.NewSource("strap-carol", "carol",
		"http://localhost:9100/reading?user=carol",
		heartboard.WithExtractor(extractor),
		heartboard.WithInterval(5*time.Second),
	)
	sources = append(sources, strap)

	hb, err := heartboard.New(
		heartboard.WithSources(sources...),
		heartboard.WithPollingInterval(2*time.Second),
		heartboard.WithPort(8080),
		heartboard.WithTitle("Heartboard Demo"),
		heartboard.WithReadingCallback(func(r heartboard.Reading) {
			if r.HeartRate > 120 {
				slog.Warn("elevated heart rate", "name", r.Name, "heart_rate", r.HeartRate)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create heartboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Heartboard Demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  Sources: alice and bob every 2s, carol every 5s")
	fmt.Println("  Submit your own: curl -X POST localhost:8080/api/heart-rate \\")
	fmt.Println(`    -H 'Content-Type: application/json' -d '{"name":"you","heartRate":70}'`)
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := hb.Start(ctx); err != nil {
		slog.Error("heartboard error", "error", err)
		os.Exit(1)
	}
}
