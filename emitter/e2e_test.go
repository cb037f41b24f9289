package emitter_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"go-ais-simulator/ais"
	"go-ais-simulator/emitter"
	"go-ais-simulator/ingest"
)

// memStore is an in-memory Store with natural-key deduplication.
type memStore struct {
	mu      sync.Mutex
	records map[string]ingest.Record
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]ingest.Record)}
}

func (m *memStore) Upsert(_ context.Context, rec ingest.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.MMSI + "|" + rec.Timestamp.UTC().Format(time.RFC3339)
	if _, exists := m.records[key]; !exists {
		m.records[key] = rec
	}
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// TestEmitterToIngester drives the full closed loop over an in-process
// pipe: sampler -> codec -> emitter -> transport -> pipeline -> store.
func TestEmitterToIngester(t *testing.T) {
	route := &ais.Route{
		From: "Valparaiso",
		To:   "Callao",
		MMSI: "725019870",
		Waypoints: []ais.Waypoint{
			{Lon: -71.6, Lat: -33.0},
			{Lon: -72.0, Lat: -30.0},
			{Lon: -77.1, Lat: -12.0},
		},
	}

	config := emitter.DefaultConfig()
	config.SpeedFactor = emitter.NoDelay
	config.SpeedKnots = 300 // compress the voyage into a handful of samples
	config.Interval = time.Hour

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := emitter.New(config, route, logger)
	if err != nil {
		t.Fatalf("Failed to create emitter: %v", err)
	}

	sampler, err := ais.NewRouteSampler(route.Waypoints, config.SpeedKnots, config.Interval, time.Time{})
	if err != nil {
		t.Fatalf("Failed to create sampler: %v", err)
	}
	want := sampler.SampleCount()

	client, server := net.Pipe()

	go func() {
		defer server.Close()
		if err := e.Stream(context.Background(), server); err != nil {
			t.Errorf("Stream() error = %v", err)
		}
	}()

	db := newMemStore()
	pipeline := ingest.New(db, logger)
	if err := pipeline.Run(context.Background(), client); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	report := pipeline.Report()
	if report.TotalMessages != want {
		t.Errorf("Ingested %d messages, want %d", report.TotalMessages, want)
	}
	if report.StoredRecords != want {
		t.Errorf("Stored %d records, want %d", report.StoredRecords, want)
	}
	if rejected := report.Rejected(); rejected != 0 {
		t.Errorf("Rejected %d messages from a clean stream", rejected)
	}
	if db.len() != want {
		t.Errorf("Store holds %d records, want %d", db.len(), want)
	}
}
