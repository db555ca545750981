package geosnag

// ClassifyOptions controls target selection.
type ClassifyOptions struct {
	// SkipProcessed excludes files that already carry the geosnag marker.
	SkipProcessed bool
}

// Classification partitions one scan's records.
type Classification struct {
	Sources    []*PhotoRecord // GPS and capture time
	Targets    []*PhotoRecord // capture time, no GPS, not processed
	Processed  []*PhotoRecord // would be targets but carry the marker
	Skipped    []*PhotoRecord // no usable metadata
	Unreadable []*PhotoRecord
}

// Classify partitions records. Input order is preserved within each set.
func Classify(records []*PhotoRecord, opts ClassifyOptions) *Classification {
	c := &Classification{}
	for _, r := range records {
		switch {
		case r.Unreadable():
			c.Unreadable = append(c.Unreadable, r)
		case r.CaptureTime == nil:
			c.Skipped = append(c.Skipped, r)
		case r.GPS != nil:
			c.Sources = append(c.Sources, r)
		case r.Processed && opts.SkipProcessed:
			c.Processed = append(c.Processed, r)
		default:
			c.Targets = append(c.Targets, r)
		}
	}
	return c
}

// SourceDays returns the number of distinct calendar days covered by sources.
func (c *Classification) SourceDays() int {
	days := make(map[string]struct{})
	for _, s := range c.Sources {
		days[s.Day()] = struct{}{}
	}
	return len(days)
}
