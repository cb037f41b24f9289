package ais

import (
	"encoding/json"
	"time"
)

// KindPositionReport is the envelope kind for AIS position reports.
const KindPositionReport = "position-report"

// Waypoint is a single geographic point on a route.
type Waypoint struct {
	Lon float64
	Lat float64
}

// Route is an ordered sequence of waypoints between two ports.
type Route struct {
	From      string
	To        string
	MMSI      string
	Waypoints []Waypoint
}

// PositionSample is one interpolated position fix along a route.
type PositionSample struct {
	Timestamp time.Time
	Lat       float64 // degrees, [-90, 90]
	Lon       float64 // degrees, [-180, 180]
	Speed     float64 // knots
	Course    float64 // degrees, [0, 360)
}

// Report is a decoded AIS position report.
//
// Speed and Course are nil when the wire fields carry the "not available"
// markers (1023 tenths of a knot, 3600 tenths of a degree).
type Report struct {
	Type       int
	MMSI       string
	Lat        float64
	Lon        float64
	Speed      *float64 // SOG, knots
	Course     *float64 // COG, degrees
	Raw        string
	ChecksumOK bool
}

// Envelope is the transport-level unit carrying one or more encoded
// sentences plus routing metadata.
type Envelope struct {
	Kind      string
	MMSI      string
	Timestamp time.Time
	Payload   []string
}

// MarshalJSON emits a single fragment as a bare string rather than a
// one-element array, matching what receivers in the wild expect.
func (e Envelope) MarshalJSON() ([]byte, error) {
	var payload any = e.Payload
	if len(e.Payload) == 1 {
		payload = e.Payload[0]
	}
	return json.Marshal(struct {
		Kind      string `json:"kind"`
		MMSI      string `json:"mmsi"`
		Timestamp string `json:"timestamp"`
		Payload   any    `json:"payload"`
	}{
		Kind:      e.Kind,
		MMSI:      e.MMSI,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Payload:   payload,
	})
}
