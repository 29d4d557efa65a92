package store

import (
	"errors"
	"time"
)

// TimestampLayout is the layout of every timestamp produced by the store.
// It matches JavaScript's Date.prototype.toISOString: UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultHistoryLimit is the number of readings kept per user when no
// explicit limit is configured.
const DefaultHistoryLimit = 100

var (
	// ErrValidation is returned when a submission lacks a name or heart rate.
	ErrValidation = errors.New("name and heartRate are required")

	// ErrNotFound is returned when a queried user has never submitted a reading.
	ErrNotFound = errors.New("user not found")
)

// FormatTimestamp renders t in [TimestampLayout].
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Reading is a single entry of a user's history.
type Reading struct {
	HeartRate float64 `json:"heartRate"`
	Timestamp string  `json:"timestamp"`
}

// UserReading is a reading tagged with the user it belongs to. It is what
// submissions and latest-reading queries return, and what subscribers receive.
type UserReading struct {
	Name      string  `json:"name"`
	HeartRate float64 `json:"heartRate"`
	Timestamp string  `json:"timestamp"`
}

// User is the stored state for one named user.
//
// LastHeartRate and LastUpdate always mirror the final element of
// HeartRateHistory.
type User struct {
	Name             string    `json:"name"`
	HeartRateHistory []Reading `json:"heartRateHistory"`
	LastHeartRate    float64   `json:"lastHeartRate"`
	LastUpdate       string    `json:"lastUpdate"`
}

// Store defines the operations the HTTP API and pull sources need.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Submit records a reading for name, creating the user if needed.
	// Returns ErrValidation if name is empty or heartRate is zero.
	Submit(name string, heartRate float64) (UserReading, error)

	// Users returns a snapshot of every user keyed by name.
	Users() map[string]User

	// Latest returns the most recent reading for name, or ErrNotFound.
	Latest(name string) (UserReading, error)

	// History returns the tail of the user's history selected by n,
	// following the semantics of slice(-n) on the history array:
	// n > 0 keeps the last n entries, n == 0 keeps everything and
	// n < 0 drops the first -n entries. Returns ErrNotFound for unknown users.
	History(name string, n int) ([]Reading, error)

	// Subscribe returns a channel that receives every recorded reading.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan UserReading

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan UserReading)
}
