package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// sensorState is the simulated heart rate of one wearer.
type sensorState struct {
	bpm float64
}

// step moves the rate by a small random amount, kept within 50-160 bpm.
func (s *sensorState) step() float64 {
	s.bpm += float64(rand.Intn(7) - 3)
	if s.bpm < 50 {
		s.bpm = 50
	}
	if s.bpm > 160 {
		s.bpm = 160
	}
	return s.bpm
}

// StartMockSensor runs a fake sensor bridge. GET /reading?user=alice returns
// {"user": "alice", "data": {"bpm": 71}} with a rate that drifts between
// calls. Call this in a goroutine before starting Heartboard.
func StartMockSensor(addr string) {
	var (
		states = make(map[string]*sensorState)
		mu     sync.Mutex
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/reading", func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")

		// simulate small latency variance
		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		mu.Lock()
		state, exists := states[user]
		if !exists {
			state = &sensorState{bpm: float64(60 + rand.Intn(30))}
			states[user] = state
		}
		bpm := state.step()
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"user": user,
			"data": map[string]float64{"bpm": bpm},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock sensor error", "error", err)
	}
}
