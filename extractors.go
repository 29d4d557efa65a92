package heartboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RateExtractor reads a heart rate out of a source's HTTP response.
//
// Extractors should be pure functions. They run inside a panic recovery
// boundary; a panicking extractor yields an error carrying a correlation ID
// while the stack trace is logged server-side.
type RateExtractor func(body []byte, statusCode int) (float64, error)

// ErrNoHeartRate is returned by extractors that found no usable value.
var ErrNoHeartRate = errors.New("no heart rate in response")

// checkStatus rejects non-2xx responses.
func checkStatus(statusCode int) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("unexpected status code %d", statusCode)
	}
	return nil
}

// JSONFieldExtractor returns a [RateExtractor] that reads a number from a
// JSON field using dot notation, e.g. "data.bpm" for {"data": {"bpm": 70}}.
// Numeric strings are accepted too.
func JSONFieldExtractor(path string) RateExtractor {
	parts := strings.Split(path, ".")

	return func(body []byte, statusCode int) (float64, error) {
		if err := checkStatus(statusCode); err != nil {
			return 0, err
		}

		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			return 0, fmt.Errorf("invalid JSON: %w", err)
		}

		current := data
		for _, part := range parts {
			obj, ok := current.(map[string]any)
			if !ok {
				return 0, fmt.Errorf("%w: %q not found", ErrNoHeartRate, path)
			}
			if current, ok = obj[part]; !ok {
				return 0, fmt.Errorf("%w: %q not found", ErrNoHeartRate, path)
			}
		}

		switch v := current.(type) {
		case float64:
			return v, nil
		case string:
			return parseRate(v)
		default:
			return 0, fmt.Errorf("%w: %q is not a number", ErrNoHeartRate, path)
		}
	}
}

// PlainTextExtractor is a [RateExtractor] for responses whose whole body is
// a number, such as "72\n".
var PlainTextExtractor RateExtractor = func(body []byte, statusCode int) (float64, error) {
	if err := checkStatus(statusCode); err != nil {
		return 0, err
	}
	return parseRate(string(body))
}

func parseRate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrNoHeartRate, s)
	}
	return v, nil
}

// FirstMatch returns a [RateExtractor] that tries extractors in order and
// returns the first successful result. If all fail, the last error is returned.
func FirstMatch(extractors ...RateExtractor) RateExtractor {
	return func(body []byte, statusCode int) (float64, error) {
		err := ErrNoHeartRate
		for _, extractor := range extractors {
			var v float64
			if v, err = extractor(body, statusCode); err == nil {
				return v, nil
			}
		}
		return 0, err
	}
}

// DefaultExtractor is used for sources without an extractor. It reads the
// "heartRate" JSON field, then falls back to a plain-text body.
var DefaultExtractor = FirstMatch(
	JSONFieldExtractor("heartRate"),
	PlainTextExtractor,
)
