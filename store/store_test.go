package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"go-ais-simulator/ingest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ais_test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(mmsi string, ts time.Time, lat, lon float64) ingest.Record {
	speed := 12.5
	course := 87.0
	return ingest.Record{
		MMSI:      mmsi,
		Timestamp: ts,
		Lat:       lat,
		Lon:       lon,
		Speed:     &speed,
		Course:    &course,
		Raw:       "!AIVDM,1,1,,A,sentence,0*00",
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rec := record("244660123", ts, 51.9, 4.4)
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Re-delivery of the same natural key is a no-op, and must not
	// overwrite the stored values.
	dup := rec
	dup.Lat = 0
	if err := s.Upsert(ctx, dup); err != nil {
		t.Fatalf("Duplicate Upsert() error = %v", err)
	}

	track, err := s.FetchTrack(ctx, "244660123", nil, nil)
	if err != nil {
		t.Fatalf("FetchTrack() error = %v", err)
	}
	if len(track) != 1 {
		t.Fatalf("Track has %d records after duplicate upsert, want 1", len(track))
	}
	if track[0].Lat != 51.9 {
		t.Errorf("Duplicate upsert overwrote lat: got %f, want 51.9", track[0].Lat)
	}
}

func TestFetchTrackOrderingAndWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order; fetch must come back time-ascending.
	for _, offset := range []int{2, 0, 1, 3} {
		rec := record("244660123", base.Add(time.Duration(offset)*time.Hour), 51.9, 4.4+float64(offset))
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	track, err := s.FetchTrack(ctx, "244660123", nil, nil)
	if err != nil {
		t.Fatalf("FetchTrack() error = %v", err)
	}
	if len(track) != 4 {
		t.Fatalf("Track has %d records, want 4", len(track))
	}
	for i := 1; i < len(track); i++ {
		if !track[i].Timestamp.After(track[i-1].Timestamp) {
			t.Errorf("Track not time-ascending at index %d", i)
		}
	}

	start := base.Add(time.Hour)
	end := base.Add(2 * time.Hour)
	windowed, err := s.FetchTrack(ctx, "244660123", &start, &end)
	if err != nil {
		t.Fatalf("FetchTrack() error = %v", err)
	}
	if len(windowed) != 2 {
		t.Errorf("Windowed track has %d records, want 2", len(windowed))
	}

	empty, err := s.FetchTrack(ctx, "999999999", nil, nil)
	if err != nil {
		t.Fatalf("FetchTrack() for unknown vessel error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Unknown vessel returned %d records, want an empty track", len(empty))
	}
}

func TestUpsertNullableFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := ingest.Record{
		MMSI:      "244660123",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Lat:       51.9,
		Lon:       4.4,
		Raw:       "!AIVDM,1,1,,A,sentence,0*00",
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	track, err := s.FetchTrack(ctx, "244660123", nil, nil)
	if err != nil {
		t.Fatalf("FetchTrack() error = %v", err)
	}
	if len(track) != 1 {
		t.Fatalf("Track has %d records, want 1", len(track))
	}
	if track[0].Speed != nil || track[0].Course != nil {
		t.Errorf("Absent SOG/COG should come back nil, got %v / %v", track[0].Speed, track[0].Course)
	}
}

func TestStats(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("short track", func(t *testing.T) {
		if got := Stats(nil); got != (TrackStats{}) {
			t.Errorf("Stats(nil) = %+v, want zeroes", got)
		}
		one := []ingest.Record{record("244660123", base, 0, 0)}
		if got := Stats(one); got != (TrackStats{}) {
			t.Errorf("Stats(one point) = %+v, want zeroes", got)
		}
	})

	t.Run("equator degree in one hour", func(t *testing.T) {
		track := []ingest.Record{
			record("244660123", base, 0, 0),
			record("244660123", base.Add(time.Hour), 0, 1),
		}
		stats := Stats(track)

		// One degree of longitude at the equator is ~60 nm great circle.
		if math.Abs(stats.DistanceNM-60) > 0.5 {
			t.Errorf("DistanceNM = %f, want ~60", stats.DistanceNM)
		}
		if math.Abs(stats.AverageSpeedKnots-stats.DistanceNM) > 1e-9 {
			t.Errorf("AverageSpeedKnots = %f over one hour, want %f", stats.AverageSpeedKnots, stats.DistanceNM)
		}
	})
}
