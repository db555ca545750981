package geosnag_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"geosnag-go/internal/geosnag"
	"geosnag-go/internal/index"
	"geosnag-go/internal/matchcache"
	"geosnag-go/internal/testutil"
)

type fakeJournal struct {
	writes []*geosnag.AppliedWrite
	err    error
}

func (j *fakeJournal) RecordWrite(w *geosnag.AppliedWrite) error {
	if j.err != nil {
		return j.err
	}
	j.writes = append(j.writes, w)
	return nil
}

func matchFor(t *testing.T, target string, coord *geosnag.Coordinate) *geosnag.MatchResult {
	t.Helper()
	src := photo(t, "/p/src.nef", "2025-05-01T10:00:00", coord)
	tgt := photo(t, target, "2025-05-01T10:03:00", nil)
	return &geosnag.MatchResult{Target: tgt, Source: src, Confidence: 97.5, Delta: 3 * time.Minute}
}

func TestApplier_NoWriterFailsBeforeWriting(t *testing.T) {
	xmp := testutil.NewStubWriter(geosnag.WriterKindXMP)
	exif := testutil.NewStubWriter(geosnag.WriterKindEXIF)
	a := geosnag.NewApplier([]geosnag.WriterCandidate{
		{Writer: exif, Available: false},
		{Writer: xmp, Available: true},
	}, nil, nil, nil, testutil.FixedClock(), nil)

	for _, mode := range []geosnag.WriteMode{geosnag.WriteModeEXIF, geosnag.WriteModeBoth} {
		_, err := a.Apply(context.Background(), []*geosnag.MatchResult{matchFor(t, "/p/t.jpg", gps(1, 1))}, geosnag.ApplyOptions{Mode: mode})
		if !errors.Is(err, geosnag.ErrNoWriter) {
			t.Errorf("mode %s: error = %v, want ErrNoWriter", mode, err)
		}
		if err := a.Ready(mode); !errors.Is(err, geosnag.ErrNoWriter) {
			t.Errorf("mode %s: Ready() = %v, want ErrNoWriter", mode, err)
		}
	}
	if len(xmp.Calls()) != 0 {
		t.Error("no file may be written when a required backend is missing")
	}
	if err := a.Ready(geosnag.WriteModeXMP); err != nil {
		t.Errorf("Ready(xmp_sidecar) = %v", err)
	}
}

func TestApplier_FailureIsolation(t *testing.T) {
	exif := testutil.NewStubWriter(geosnag.WriterKindEXIF)
	exif.FailOn("/p/locked.jpg", errors.New("permission denied"))

	idx := index.NewMemory()
	cache := matchcache.NewMemory(matchcache.Options{MaxDelta: 2 * time.Hour})

	results := []*geosnag.MatchResult{
		matchFor(t, "/p/a.jpg", gps(48.8566, 2.3522)),
		matchFor(t, "/p/locked.jpg", gps(48.8566, 2.3522)),
		matchFor(t, "/p/bad.jpg", gps(123, 2)),
		matchFor(t, "/p/b.jpg", gps(-33.8688, 151.2093)),
	}
	for _, r := range results {
		idx.Record(r.Target.Identity, &r.Target.Metadata)
		cache.RecordUnmatched(r.Target.Identity, "fp")
	}

	a := geosnag.NewApplier([]geosnag.WriterCandidate{{Writer: exif, Available: true}}, idx, cache, nil, testutil.FixedClock(), nil)
	out, err := a.Apply(context.Background(), results, geosnag.ApplyOptions{Mode: geosnag.WriteModeEXIF})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(out.Written) != 2 || len(out.Failures) != 2 {
		t.Fatalf("written=%d failures=%d, want 2 and 2", len(out.Written), len(out.Failures))
	}
	if !errors.Is(out.Failures[1].Err, geosnag.ErrInvalidCoordinate) {
		t.Errorf("bad.jpg error = %v, want ErrInvalidCoordinate", out.Failures[1].Err)
	}

	for _, r := range results {
		_, cached := idx.Lookup(r.Target.Identity)
		known := cache.IsKnownUnmatched(r.Target.Identity, "fp")
		written := r.Target.Path() == "/p/a.jpg" || r.Target.Path() == "/p/b.jpg"
		if cached == written {
			t.Errorf("%s: index entry present = %v after write = %v", r.Target.Path(), cached, written)
		}
		if known == written {
			t.Errorf("%s: cache verdict present = %v after write = %v", r.Target.Path(), known, written)
		}
	}

	calls := exif.Calls()
	if len(calls) != 2 || calls[1].Coord.Latitude != -33.8688 {
		t.Errorf("unexpected writes: %+v", calls)
	}
	if calls[0].Opts.Stamp != geosnag.Stamp(testutil.FixedClock().Now()) {
		t.Errorf("exif write stamp = %q", calls[0].Opts.Stamp)
	}
}

func TestApplier_ModesAndMarkers(t *testing.T) {
	setup := func() (*testutil.StubWriter, *testutil.StubWriter, *geosnag.Applier) {
		exif := testutil.NewStubWriter(geosnag.WriterKindEXIF)
		xmp := testutil.NewStubWriter(geosnag.WriterKindXMP)
		a := geosnag.NewApplier([]geosnag.WriterCandidate{
			{Writer: exif, Available: true},
			{Writer: xmp, Available: true},
		}, nil, nil, nil, testutil.FixedClock(), nil)
		return exif, xmp, a
	}

	t.Run("both mode stamps the exif write only", func(t *testing.T) {
		exif, xmp, a := setup()
		_, err := a.Apply(context.Background(), []*geosnag.MatchResult{matchFor(t, "/p/t.jpg", gps(1, 1))},
			geosnag.ApplyOptions{Mode: geosnag.WriteModeBoth})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if c := exif.Calls(); len(c) != 1 || c[0].Opts.Stamp == "" {
			t.Errorf("exif calls = %+v", c)
		}
		if c := xmp.Calls(); len(c) != 1 || c[0].Opts.Stamp != "" {
			t.Errorf("xmp calls = %+v", c)
		}
	})

	t.Run("xmp mode marks the original best effort", func(t *testing.T) {
		exif, xmp, a := setup()
		exif.FailMarks(errors.New("read-only file"))

		out, err := a.Apply(context.Background(), []*geosnag.MatchResult{matchFor(t, "/p/t.jpg", gps(1, 1))},
			geosnag.ApplyOptions{Mode: geosnag.WriteModeXMP})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if len(out.Written) != 1 {
			t.Errorf("marker failure must not fail the write")
		}
		if len(exif.Calls()) != 0 {
			t.Error("xmp mode must not write exif coordinates")
		}
		if c := xmp.Calls(); len(c) != 1 || c[0].Opts.Stamp == "" {
			t.Errorf("xmp calls = %+v", c)
		}
	})

	t.Run("xmp mode stamp lands on original", func(t *testing.T) {
		exif, _, a := setup()
		_, err := a.Apply(context.Background(), []*geosnag.MatchResult{matchFor(t, "/p/t.jpg", gps(1, 1))},
			geosnag.ApplyOptions{Mode: geosnag.WriteModeXMP})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if _, ok := exif.Marks()["/p/t.jpg"]; !ok {
			t.Error("expected processed marker on the original")
		}
	})
}

func TestApplier_Journal(t *testing.T) {
	exif := testutil.NewStubWriter(geosnag.WriterKindEXIF)
	xmp := testutil.NewStubWriter(geosnag.WriterKindXMP)
	candidates := []geosnag.WriterCandidate{{Writer: exif, Available: true}, {Writer: xmp, Available: true}}
	clock := testutil.FixedClock()

	t.Run("records each write with the run id", func(t *testing.T) {
		j := &fakeJournal{}
		a := geosnag.NewApplier(candidates, nil, nil, j, clock, nil)
		_, err := a.Apply(context.Background(), []*geosnag.MatchResult{matchFor(t, "/p/t.jpg", gps(1.5, 2.5))},
			geosnag.ApplyOptions{Mode: geosnag.WriteModeBoth, RunID: 7})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if len(j.writes) != 1 {
			t.Fatalf("journal has %d writes, want 1", len(j.writes))
		}
		w := j.writes[0]
		if w.RunID != 7 || w.TargetPath != "/p/t.jpg" || w.SourcePath != "/p/src.nef" {
			t.Errorf("unexpected journal row: %+v", w)
		}
		if w.Method != "both" || w.DeltaSeconds != 180 || w.Latitude != 1.5 || !w.WrittenAt.Equal(clock.Now()) {
			t.Errorf("unexpected journal row: %+v", w)
		}
	})

	t.Run("run id zero disables journaling", func(t *testing.T) {
		j := &fakeJournal{}
		a := geosnag.NewApplier(candidates, nil, nil, j, clock, nil)
		_, _ = a.Apply(context.Background(), []*geosnag.MatchResult{matchFor(t, "/p/t.jpg", gps(1, 1))},
			geosnag.ApplyOptions{Mode: geosnag.WriteModeEXIF})
		if len(j.writes) != 0 {
			t.Errorf("journal has %d writes, want 0", len(j.writes))
		}
	})

	t.Run("journal failure does not fail the write", func(t *testing.T) {
		j := &fakeJournal{err: errors.New("database is locked")}
		a := geosnag.NewApplier(candidates, nil, nil, j, clock, nil)
		out, err := a.Apply(context.Background(), []*geosnag.MatchResult{matchFor(t, "/p/t.jpg", gps(1, 1))},
			geosnag.ApplyOptions{Mode: geosnag.WriteModeEXIF, RunID: 1})
		if err != nil || len(out.Written) != 1 {
			t.Errorf("Apply() = %+v, %v", out, err)
		}
	})
}
