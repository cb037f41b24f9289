// Package store persists decoded position reports in SQLite, keyed by
// (mmsi, timestamp). Duplicate keys from at-least-once delivery are
// absorbed as no-ops, which is the only concurrency contract the ingest
// side relies on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-ais-simulator/ingest"
)

const schema = `
CREATE TABLE IF NOT EXISTS ais_messages (
	mmsi      TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	lat       REAL NOT NULL,
	lon       REAL NOT NULL,
	speed     REAL,
	course    REAL,
	raw       TEXT NOT NULL,
	PRIMARY KEY (mmsi, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_mmsi ON ais_messages (mmsi);
CREATE INDEX IF NOT EXISTS idx_timestamp ON ais_messages (timestamp);
CREATE INDEX IF NOT EXISTS idx_mmsi_timestamp ON ais_messages (mmsi, timestamp);
`

// Store is a SQLite-backed record store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts a record, silently ignoring a conflicting (mmsi,
// timestamp) key. Existing values are never overwritten.
func (s *Store) Upsert(ctx context.Context, rec ingest.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ais_messages (mmsi, timestamp, lat, lon, speed, course, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (mmsi, timestamp) DO NOTHING`,
		rec.MMSI,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Lat,
		rec.Lon,
		rec.Speed,
		rec.Course,
		rec.Raw,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record for %s: %w", rec.MMSI, err)
	}
	return nil
}

// FetchTrack returns the stored reports for one vessel ordered by
// timestamp ascending, optionally bounded by a time window. No matching
// data yields an empty slice, not an error.
func (s *Store) FetchTrack(ctx context.Context, mmsi string, start, end *time.Time) ([]ingest.Record, error) {
	query := `
		SELECT mmsi, timestamp, lat, lon, speed, course, raw
		FROM ais_messages
		WHERE mmsi = ?`
	args := []any{mmsi}

	if start != nil {
		query += ` AND timestamp >= ?`
		args = append(args, start.UTC().Format(time.RFC3339))
	}
	if end != nil {
		query += ` AND timestamp <= ?`
		args = append(args, end.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY timestamp`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track for %s: %w", mmsi, err)
	}
	defer rows.Close()

	track := []ingest.Record{}
	for rows.Next() {
		var rec ingest.Record
		var ts string
		var speed, course sql.NullFloat64
		if err := rows.Scan(&rec.MMSI, &ts, &rec.Lat, &rec.Lon, &speed, &course, &rec.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("stored timestamp %q is not RFC3339: %w", ts, err)
		}
		if speed.Valid {
			rec.Speed = &speed.Float64
		}
		if course.Valid {
			rec.Course = &course.Float64
		}
		track = append(track, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track rows: %w", err)
	}

	return track, nil
}
