package repository

import (
	"database/sql"
	"testing"
	"time"
)

func TestParseAggregateTimeLayouts(t *testing.T) {
	cases := []string{
		"2026-08-28T10:30:00.123456789+08:00",
		"2026-08-28 10:30:00.123456789+08:00",
		"2026-08-28 10:30:00.123",
		"2026-08-28 10:30:00",
	}
	for _, raw := range cases {
		ts := parseAggregateTime(sql.NullString{String: raw, Valid: true})
		if ts == nil {
			t.Fatalf("parse %q returned nil", raw)
		}
		if ts.Year() != 2026 || ts.Month() != time.August || ts.Day() != 28 {
			t.Fatalf("parse %q got unexpected time %v", raw, ts)
		}
	}
}

func TestParseAggregateTimeInvalid(t *testing.T) {
	if ts := parseAggregateTime(sql.NullString{}); ts != nil {
		t.Fatalf("null value should parse to nil, got %v", ts)
	}
	if ts := parseAggregateTime(sql.NullString{String: "not-a-time", Valid: true}); ts != nil {
		t.Fatalf("garbage value should parse to nil, got %v", ts)
	}
}
