// Standalone mock sensor for trying sources with the CLI.
//
// Usage:
//
//	go run ./example/cmd/mocksensor
//
// Then in another terminal:
//
//	go run ./cmd/heartboard serve -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock sensor starting on :9100")
	fmt.Println("  GET /reading?user=NAME  -> {\"data\":{\"bpm\":N}}")
	fmt.Println("  GET /bpm?user=NAME      -> N (plain text)")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		rates = make(map[string]float64)
		mu    sync.Mutex
	)

	next := func(user string) float64 {
		mu.Lock()
		defer mu.Unlock()
		bpm, ok := rates[user]
		if !ok {
			bpm = float64(60 + rand.Intn(30))
		}
		bpm = min(max(bpm+float64(rand.Intn(7)-3), 50), 160)
		rates[user] = bpm
		return bpm
	}

	http.HandleFunc("/reading", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		user := r.URL.Query().Get("user")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": user,
			"data": map[string]float64{"bpm": next(user)},
		})
	})

	http.HandleFunc("/bpm", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strconv.FormatFloat(next(r.URL.Query().Get("user")), 'f', -1, 64) + "\n"))
	})

	if err := http.ListenAndServe(":9100", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
