package server

import (
	"math"
	"testing"
)

func TestHistoryLimit(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   int
	}{
		{"absent uses fallback", nil, 50},
		{"plain number", []string{"3"}, 3},
		{"leading whitespace", []string{"  7"}, 7},
		{"trailing garbage", []string{"5abc"}, 5},
		{"decimal truncated", []string{"3.9"}, 3},
		{"explicit plus", []string{"+4"}, 4},
		{"negative", []string{"-2"}, -2},
		{"hex prefix", []string{"0x1A"}, 26},
		{"exponent ignored", []string{"1e3"}, 1},
		{"non numeric", []string{"abc"}, 0},
		{"empty string", []string{""}, 0},
		{"sign only", []string{"-"}, 0},
		{"repeated takes first", []string{"2", "9"}, 2},
		{"huge saturates", []string{"99999999999999999999"}, math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := historyLimit(tt.values, 50); got != tt.want {
				t.Errorf("historyLimit(%q) = %d, want %d", tt.values, got, tt.want)
			}
		})
	}
}
