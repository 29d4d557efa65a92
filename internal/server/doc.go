// Package server provides the HTTP server for the heart-rate API and dashboard.
//
// This package is internal to Heartboard and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded landing page at "/"
//   - REST API: JSON endpoints under "/api" for submitting and querying readings
//   - Server-Sent Events: Live readings at "/api/stream"
//   - CORS: Every response allows any origin; OPTIONS on any path returns 200
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
