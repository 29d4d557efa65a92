package server

import (
	"math"
	"strings"
	"unicode"
)

// historyLimit resolves the "limit" query parameter of the history endpoint.
//
// An absent parameter selects fallback. Otherwise the value is parsed the way
// JavaScript's parseInt does and the result is handed to the store, where it
// is applied like slice(-n). Unparseable input yields 0, which selects the
// whole history, the same as slice(-NaN). Repeated parameters are joined with
// commas, so the first one wins.
func historyLimit(values []string, fallback int) int {
	if len(values) == 0 {
		return fallback
	}
	n, ok := parseIntPrefix(strings.Join(values, ","))
	if !ok {
		return 0
	}
	return n
}

// parseIntPrefix parses the leading integer of s: optional whitespace and
// sign, an optional 0x prefix, then as many digits as possible. Trailing
// garbage is ignored. Reports false when no digit was found. Magnitudes are
// saturated at math.MaxInt32.
func parseIntPrefix(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := 10
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	n, digits := 0, 0
	for _, c := range s {
		d := digitValue(c)
		if d < 0 || d >= base {
			break
		}
		if n <= math.MaxInt32 {
			n = n*base + d
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}

	n = min(n, math.MaxInt32)
	if neg {
		n = -n
	}
	return n, true
}

func digitValue(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return -1
	}
}
