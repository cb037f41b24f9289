package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go-ais-simulator/ais"
)

// Record is a validated position report ready for durable storage,
// keyed by (MMSI, Timestamp).
type Record struct {
	MMSI      string
	Timestamp time.Time
	Lat       float64
	Lon       float64
	Speed     *float64
	Course    *float64
	Raw       string
}

// Store is the durable side of the pipeline. Upsert must be idempotent:
// a re-delivered key is silently absorbed, never overwritten.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
}

// Pipeline consumes inbound envelopes from one transport session,
// validates each stage, deduplicates through the store's natural-key
// upsert, and accumulates a quality report.
//
// Every inbound message is untrusted. A message that fails any stage is
// counted under exactly one category and the session moves on; only
// transport-level termination stops the loop.
type Pipeline struct {
	// StrictChecksum counts sentences with a checksum mismatch as decode
	// failures instead of passing them through permissively.
	StrictChecksum bool

	// ReportSink, when set, receives the quality report once at session end.
	ReportSink io.Writer

	store  Store
	log    *slog.Logger
	report QualityReport
}

// inboundEnvelope mirrors the wire envelope with pointer fields so missing
// keys are distinguishable from zero values.
type inboundEnvelope struct {
	Kind      *string      `json:"kind"`
	MMSI      *string      `json:"mmsi"`
	Timestamp *string      `json:"timestamp"`
	Payload   payloadField `json:"payload"`
}

// payloadField accepts either a single sentence string or an array of
// fragment strings, normalizing both into a slice.
type payloadField []string

func (p *payloadField) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = payloadField{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("payload must be a sentence or an array of sentences: %w", err)
	}
	*p = payloadField(many)
	return nil
}

// New creates a pipeline for one ingest session.
func New(store Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: store, log: logger}
}

// Report returns a snapshot of the session's quality counters.
func (p *Pipeline) Report() QualityReport {
	return p.report
}

// Run consumes newline-delimited envelopes from r until the stream ends
// or the context is cancelled, then flushes the quality report to the
// sink exactly once. A clean peer close returns nil; an unexpected
// transport fault is returned after the flush.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	defer p.flushReport()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.process(ctx, scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("transport read failed: %w", err)
	}

	return nil
}

func (p *Pipeline) flushReport() {
	if p.ReportSink == nil {
		return
	}
	if _, err := p.report.WriteTo(p.ReportSink); err != nil {
		p.log.Error("failed to write quality report", "err", err)
	}
}

// process runs the validation state machine over one inbound message.
// It must never panic through to the caller: anything the stages do not
// anticipate is counted under "other" and the session continues.
func (p *Pipeline) process(ctx context.Context, line []byte) {
	p.report.TotalMessages++

	defer func() {
		if r := recover(); r != nil {
			p.report.Other++
			p.log.Error("unexpected ingest failure", "panic", r)
		}
	}()

	var env inboundEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		p.report.MalformedEnvelopes++
		p.log.Warn("malformed envelope", "err", err)
		return
	}

	if env.MMSI == nil || !ais.ValidMMSI(*env.MMSI) {
		p.report.InvalidMMSI++
		p.log.Warn("invalid mmsi", "mmsi", stringOr(env.MMSI, "<missing>"))
		return
	}

	if env.Timestamp == nil {
		p.report.InvalidTimestamps++
		p.log.Warn("missing timestamp", "mmsi", *env.MMSI)
		return
	}
	timestamp, err := parseTimestamp(*env.Timestamp)
	if err != nil {
		p.report.InvalidTimestamps++
		p.log.Warn("invalid timestamp", "timestamp", *env.Timestamp)
		return
	}

	if len(env.Payload) == 0 {
		p.report.MissingFields++
		p.log.Warn("envelope has no payload", "mmsi", *env.MMSI)
		return
	}

	// One bad fragment does not discard its siblings.
	for _, sentence := range env.Payload {
		report, err := ais.Decode(sentence)
		if err != nil {
			p.report.DecodeFailures++
			p.log.Warn("decode failed", "sentence", sentence, "err", err)
			continue
		}
		if p.StrictChecksum && !report.ChecksumOK {
			p.report.DecodeFailures++
			p.log.Warn("checksum mismatch", "sentence", sentence)
			continue
		}

		if report.Lat < -90 || report.Lat > 90 || report.Lon < -180 || report.Lon > 180 {
			p.report.InvalidCoordinates++
			p.log.Warn("out-of-range coordinates", "lat", report.Lat, "lon", report.Lon)
			continue
		}

		rec := Record{
			MMSI:      report.MMSI,
			Timestamp: timestamp,
			Lat:       report.Lat,
			Lon:       report.Lon,
			Speed:     report.Speed,
			Course:    report.Course,
			Raw:       sentence,
		}

		// A valid message that fails to persist is a storage condition,
		// not a validation failure.
		if err := p.store.Upsert(ctx, rec); err != nil {
			p.report.StorageFailures++
			p.log.Error("upsert failed", "mmsi", rec.MMSI, "timestamp", rec.Timestamp, "err", err)
			continue
		}

		p.report.StoredRecords++
		p.log.Debug("stored position report", "mmsi", rec.MMSI, "timestamp", rec.Timestamp)
	}
}

// parseTimestamp accepts an ISO-8601 instant with or without a zone
// designator.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
