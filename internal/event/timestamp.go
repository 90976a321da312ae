package event

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrUnresolvableTimestamp means a payload's timestamp matched none of the
// supported representations. The payload is dropped; the ingest call goes on.
var ErrUnresolvableTimestamp = errors.New("unresolvable timestamp")

// Naive date-time layout, assumed UTC. The fractional part is optional.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// ResolveTimestamp converts a raw JSON timestamp value into epoch seconds.
// Clients send timestamps in several shapes; they are tried in a fixed order,
// each guarded by a cheap syntactic check, and the first representation that
// matches decides the outcome:
//
//  1. date-time string with an explicit offset ("2024-01-02T03:04:05Z")
//  2. integer or fractional JSON number, truncated toward zero
//  3. date-time string without an offset, assumed UTC
//  4. number carried as a string ("1704168245.5"), truncated toward zero
//
// Anything else resolves to ErrUnresolvableTimestamp.
func ResolveTimestamp(raw json.RawMessage) (int64, error) {
	token := strings.TrimSpace(string(raw))
	if token == "" || token == "null" {
		return 0, ErrUnresolvableTimestamp
	}

	if token[0] != '"' {
		// Bare JSON number.
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return 0, ErrUnresolvableTimestamp
		}
		return int64(f), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, ErrUnresolvableTimestamp
	}

	if isNumericString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, ErrUnresolvableTimestamp
		}
		return int64(f), nil
	}

	if hasZoneDesignator(s) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return 0, ErrUnresolvableTimestamp
		}
		return t.Unix(), nil
	}

	t, err := time.Parse(naiveLayout, s)
	if err != nil {
		return 0, ErrUnresolvableTimestamp
	}
	return t.UTC().Unix(), nil
}

// hasZoneDesignator reports whether a date-time string carries an explicit
// timezone: a trailing Z or a +hh:mm / -hh:mm offset after the time part.
func hasZoneDesignator(s string) bool {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return true
	}
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return false
	}
	rest := s[i+1:]
	return strings.ContainsAny(rest, "+-")
}

// isNumericString reports whether s looks like a decimal number, e.g. a Unix
// timestamp smuggled in as a string.
func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.':
		case (c == '-' || c == '+') && i == 0:
		default:
			return false
		}
	}
	return true
}
