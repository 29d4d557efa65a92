package heartboard

// Reading is a recorded heart-rate value as seen by callbacks registered
// with [WithReadingCallback].
type Reading struct {
	// Name is the user the reading belongs to.
	Name string

	// HeartRate is the recorded value.
	HeartRate float64

	// Timestamp is the server-side ISO-8601 time the reading was recorded at.
	Timestamp string
}
