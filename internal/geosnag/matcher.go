package geosnag

import (
	"sort"
	"time"
)

// MatchOptions bounds the matcher.
type MatchOptions struct {
	// MaxDelta is the widest accepted time difference, inclusive.
	MaxDelta time.Duration

	// MinConfidence rejects matches scoring below it (0-100).
	MinConfidence float64
}

// MatchResult pairs a target with the source it should take coordinates from.
type MatchResult struct {
	Target     *PhotoRecord
	Source     *PhotoRecord
	Confidence float64       // 0-100
	Delta      time.Duration // target minus source
}

// AbsDelta returns the unsigned time difference.
func (m *MatchResult) AbsDelta() time.Duration {
	if m.Delta < 0 {
		return -m.Delta
	}
	return m.Delta
}

// DeltaMinutes returns the signed delta in minutes.
func (m *MatchResult) DeltaMinutes() float64 {
	return m.Delta.Minutes()
}

// MatchOutcome is everything a match pass produced.
type MatchOutcome struct {
	Results       []*MatchResult
	Unmatched     []*PhotoRecord
	SkippedCached []*PhotoRecord
	Fingerprint   string
}

// Matcher assigns each target the closest same-day source.
type Matcher struct {
	cache  MatchCache
	logger Logger
}

// NewMatcher creates a matcher. cache may be nil to disable negative caching.
func NewMatcher(cache MatchCache, logger Logger) *Matcher {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Matcher{cache: cache, logger: logger}
}

// Confidence maps an absolute delta onto 0-100, linearly: 100 at zero and
// 0 at maxDelta.
func Confidence(delta, maxDelta time.Duration) float64 {
	if delta < 0 {
		delta = -delta
	}
	if maxDelta <= 0 {
		if delta == 0 {
			return 100
		}
		return 0
	}
	c := 100 * (1 - float64(delta)/float64(maxDelta))
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

// Match runs the day-scoped nearest-timestamp search for every target.
// Results follow target order. For equal deltas the source with the
// lexicographically smaller path wins.
func (m *Matcher) Match(targets, sources []*PhotoRecord, opts MatchOptions) *MatchOutcome {
	fp := SourcesFingerprint(sources)
	out := &MatchOutcome{Fingerprint: fp}

	byDay := make(map[string][]*PhotoRecord)
	for _, s := range sources {
		if s.GPS == nil || s.CaptureTime == nil {
			continue
		}
		day := s.Day()
		byDay[day] = append(byDay[day], s)
	}
	for _, bucket := range byDay {
		sort.Slice(bucket, func(i, j int) bool {
			if !bucket[i].CaptureTime.Equal(*bucket[j].CaptureTime) {
				return bucket[i].CaptureTime.Before(*bucket[j].CaptureTime)
			}
			return bucket[i].Path() < bucket[j].Path()
		})
	}

	m.logger.Info("source index built", "sources", len(sources), "days", len(byDay))

	for _, t := range targets {
		if t.CaptureTime == nil {
			continue
		}

		if m.cache != nil && m.cache.IsKnownUnmatched(t.Identity, fp) {
			out.SkippedCached = append(out.SkippedCached, t)
			continue
		}

		res := bestCandidate(t, byDay[t.Day()], opts.MaxDelta)
		if res != nil {
			res.Confidence = Confidence(res.Delta, opts.MaxDelta)
			if res.Confidence < opts.MinConfidence {
				m.logger.Debug("match below confidence threshold",
					"target", t.Path(), "confidence", res.Confidence)
				res = nil
			}
		}

		if res == nil {
			if m.cache != nil {
				m.cache.RecordUnmatched(t.Identity, fp)
			}
			out.Unmatched = append(out.Unmatched, t)
			continue
		}
		out.Results = append(out.Results, res)
	}

	m.logger.Info("matching complete",
		"matched", len(out.Results),
		"unmatched", len(out.Unmatched),
		"skipped_cached", len(out.SkippedCached))

	return out
}

// bestCandidate returns the closest source within maxDelta. Ties go to the smaller path.
func bestCandidate(t *PhotoRecord, candidates []*PhotoRecord, maxDelta time.Duration) *MatchResult {
	var best *PhotoRecord
	var bestAbs time.Duration

	for _, s := range candidates {
		d := t.CaptureTime.Sub(*s.CaptureTime)
		abs := d
		if abs < 0 {
			abs = -abs
		}
		if abs > maxDelta {
			continue
		}
		if best == nil || abs < bestAbs || (abs == bestAbs && s.Path() < best.Path()) {
			best = s
			bestAbs = abs
		}
	}

	if best == nil {
		return nil
	}
	return &MatchResult{
		Target: t,
		Source: best,
		Delta:  t.CaptureTime.Sub(*best.CaptureTime),
	}
}
