package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StrToIntDefault parses s as an int, returning fallback when s is empty.
func StrToIntDefault(s string, fallback int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse '%s' as integer: %w", s, err)
	}
	return n, nil
}

// StrToOptionalInt64 parses s as an int64, returning nil when s is empty.
func StrToOptionalInt64(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s' as integer: %w", s, err)
	}
	return &n, nil
}

// StrToOptionalTime accepts RFC 3339 timestamps or YYYY-MM-DD dates (UTC midnight).
func StrToOptionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s' as date: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return &t, nil
}
