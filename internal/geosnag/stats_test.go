package geosnag_test

import (
	"math"
	"testing"
	"time"

	"geosnag-go/internal/geosnag"
)

func TestSummarize(t *testing.T) {
	results := []*geosnag.MatchResult{
		{Confidence: 100, Delta: 0},
		{Confidence: 90, Delta: -12 * time.Minute},
		{Confidence: 75, Delta: 30 * time.Minute},
		{Confidence: 50, Delta: 60 * time.Minute},
		{Confidence: 10, Delta: -108 * time.Minute},
	}

	s := geosnag.Summarize(results)

	if math.Abs(s.AverageConfidence-65) > 1e-9 {
		t.Errorf("AverageConfidence = %v, want 65", s.AverageConfidence)
	}
	if math.Abs(s.AverageDeltaMinutes-42) > 1e-9 {
		t.Errorf("AverageDeltaMinutes = %v, want 42", s.AverageDeltaMinutes)
	}

	want := map[string]int{"90-100%": 2, "70-89%": 1, "50-69%": 1, "< 50%": 1}
	for _, b := range s.Buckets {
		if b.Count != want[b.Label] {
			t.Errorf("bucket %s = %d, want %d", b.Label, b.Count, want[b.Label])
		}
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := geosnag.Summarize(nil)
	if s.AverageConfidence != 0 || len(s.Buckets) != 4 {
		t.Errorf("unexpected empty summary: %+v", s)
	}
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "+0s"},
		{9 * time.Second, "+9s"},
		{-(4*time.Minute + 5*time.Second), "-4m05s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "+1h02m03s"},
		{-2 * time.Hour, "-2h00m00s"},
	}
	for _, tt := range tests {
		if got := geosnag.FormatDelta(tt.d); got != tt.want {
			t.Errorf("FormatDelta(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
