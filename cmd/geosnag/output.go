package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"geosnag-go/internal/geosnag"
)

const rule = "============================================================"

func printBanner(w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  GeoSnag: GPS Geotagging from Phone Photos")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

func printScanSummary(w io.Writer, rep *geosnag.RunReport) {
	c := rep.Counts
	fmt.Fprintln(w, "  Scan")
	fmt.Fprintf(w, "    Files:           %d (%d from index, %d read, %d failed)\n",
		c.Records, rep.Scan.Cached, rep.Scan.Read, rep.Scan.Failed)
	fmt.Fprintf(w, "    GPS sources:     %d\n", c.Sources)
	fmt.Fprintf(w, "    Targets:         %d\n", c.Targets)
	if c.Processed > 0 {
		fmt.Fprintf(w, "    Already tagged:  %d\n", c.Processed)
	}
	fmt.Fprintf(w, "    No metadata:     %d\n", c.Skipped)
	if c.Unreadable > 0 {
		fmt.Fprintf(w, "    Unreadable:      %d\n", c.Unreadable)
	}
	if rep.Pruned > 0 {
		fmt.Fprintf(w, "    Pruned:          %d stale index entries\n", rep.Pruned)
	}
	fmt.Fprintln(w)
}

func printMatchSummary(w io.Writer, rep *geosnag.RunReport) {
	c := rep.Counts
	s := rep.Summary

	fmt.Fprintln(w, "  Matching")
	fmt.Fprintf(w, "    Source days:     %d\n", rep.SourceDays)
	fmt.Fprintf(w, "    Matched:         %d\n", c.Matched)
	fmt.Fprintf(w, "    Unmatched:       %d\n", c.Unmatched)
	if c.SkippedCached > 0 {
		fmt.Fprintf(w, "    Cached no-match: %d\n", c.SkippedCached)
	}
	if c.Matched > 0 {
		fmt.Fprintf(w, "    Avg confidence:  %.1f%%\n", s.AverageConfidence)
		fmt.Fprintf(w, "    Avg time delta:  %.1f min\n", s.AverageDeltaMinutes)
		for _, b := range s.Buckets {
			fmt.Fprintf(w, "      %-8s %d\n", b.Label, b.Count)
		}
	}
	fmt.Fprintln(w)
}

// printMatchPreview shows the first limit matches, or all of them when
// limit is not positive.
func printMatchPreview(w io.Writer, results []*geosnag.MatchResult, limit int) {
	if len(results) == 0 {
		return
	}
	shown := results
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	rows := make([][]string, 0, len(shown))
	for _, r := range shown {
		rows = append(rows, []string{
			r.Target.Name(),
			r.Source.Name(),
			geosnag.FormatDelta(r.Delta),
			strconv.FormatFloat(r.Confidence, 'f', 0, 64) + "%",
			r.Source.GPS.String(),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Target", "Source", "Delta", "Conf", "GPS"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	if len(results) > len(shown) {
		fmt.Fprintf(w, "  ... and %d more\n", len(results)-len(shown))
	}
	fmt.Fprintln(w)
}

func printApplyResult(w io.Writer, rep *geosnag.RunReport, elapsed time.Duration) {
	if rep.Apply == nil {
		return
	}
	fmt.Fprintf(w, "  Written: %d  Failed: %d  (%s)\n",
		len(rep.Apply.Written), len(rep.Apply.Failures), elapsed.Truncate(time.Millisecond))
	for _, f := range rep.Apply.Failures {
		fmt.Fprintf(w, "    %s: %v\n", f.Result.Target.Path(), f.Err)
	}
}

func printNoWriter(w io.Writer, mode string) {
	fmt.Fprintf(w, "  No metadata writer is available for write mode %q.\n", mode)
	if mode != string(geosnag.WriteModeXMP) {
		fmt.Fprintln(w, "  Install exiftool or use --write-mode xmp_sidecar.")
	}
}
