package geosnag

// Counts is the summary reported for a run.
type Counts struct {
	Records    int
	Sources    int
	Targets    int
	Processed  int
	Skipped    int
	Unreadable int

	Matched       int
	SkippedCached int
	Unmatched     int

	Written       int
	WriteFailures int
}

// ConfidenceBucket counts matches within a confidence band.
type ConfidenceBucket struct {
	Label string
	Min   float64
	Count int
}

// MatchSummary aggregates match quality.
type MatchSummary struct {
	AverageConfidence   float64
	AverageDeltaMinutes float64
	Buckets             []ConfidenceBucket
}

// Summarize computes averages and the confidence distribution.
func Summarize(results []*MatchResult) MatchSummary {
	s := MatchSummary{
		Buckets: []ConfidenceBucket{
			{Label: "90-100%", Min: 90},
			{Label: "70-89%", Min: 70},
			{Label: "50-69%", Min: 50},
			{Label: "< 50%", Min: 0},
		},
	}
	if len(results) == 0 {
		return s
	}

	var conf, delta float64
	for _, r := range results {
		conf += r.Confidence
		delta += r.AbsDelta().Minutes()
		for i := range s.Buckets {
			if r.Confidence >= s.Buckets[i].Min {
				s.Buckets[i].Count++
				break
			}
		}
	}
	s.AverageConfidence = conf / float64(len(results))
	s.AverageDeltaMinutes = delta / float64(len(results))
	return s
}
