// Package poller pulls heart-rate readings from upstream HTTP sources.
//
// A source is any HTTP endpoint that reports a current heart rate, such as
// a bridge in front of a chest strap or a watch companion app. The
// [Scheduler] fetches each source at its interval, runs the source's
// [RateExtractor] over the response and emits a [Sample]. The caller decides
// what to do with samples; Heartboard submits them to the store as if they
// had been posted to the API.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with timeout and size limits
//   - [Scheduler]: Periodic fetching with a bounded worker pool
//   - [Sample]: Result of fetching a single source
//   - [SourceInfo]: Configuration for a source to fetch
package poller
