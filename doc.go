// Package heartboard provides a small, embeddable heart-rate service.
//
// Heartboard accepts heart-rate readings for named users over HTTP, keeps a
// bounded history per user in memory and serves the latest reading and
// recent history back as JSON. Readings can also be pulled from upstream
// HTTP sources on an interval.
//
// # Quick Start
//
//	hb, _ := heartboard.New(heartboard.WithPort(8080))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	hb.Start(ctx) // blocks until context is cancelled
//
// # API
//
//	GET  /                           landing page
//	GET  /api/users                  every user with full history
//	POST /api/heart-rate             {"name": "alice", "heartRate": 72}
//	GET  /api/users/{name}           latest reading
//	GET  /api/users/{name}/history   last readings, ?limit=N (default 50)
//	GET  /api/health                 {"status": "OK", "timestamp": ...}
//	GET  /api/stream                 Server-Sent Events of recorded readings
//
// Submissions must be sent as application/json; the keys name and heartRate
// are matched exactly. A heartRate of 0 is rejected like a missing one. Histories keep the most
// recent 100 readings unless [WithHistoryLimit] says otherwise. Nothing is
// persisted: all state is lost when the process exits.
//
// # Sources
//
// Sources pull readings from other services:
//
//	src, err := heartboard.NewSource("chest strap", "alice", "http://bridge.local/hr",
//	    heartboard.WithExtractor(heartboard.JSONFieldExtractor("data.bpm")),
//	    heartboard.WithInterval(5 * time.Second),
//	)
//	hb, err := heartboard.New(heartboard.WithSource(src))
//
// Each extracted value is recorded exactly as if it had been posted to
// /api/heart-rate.
//
// # Architecture
//
//   - internal/store: In-memory user table with pub/sub of new readings
//   - internal/server: HTTP API, CORS, landing page and SSE stream
//   - internal/poller: Periodic fetching of sources with a worker pool
//   - dashboard: Embedded landing page
package heartboard
