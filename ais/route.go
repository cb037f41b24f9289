package ais

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

// LoadRoute reads a precomputed route document from a JSON file. The
// document holds the port names, the broadcasting vessel's MMSI, and an
// ordered list of [lon, lat] coordinate pairs.
func LoadRoute(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}

	var doc struct {
		From  string       `json:"from"`
		To    string       `json:"to"`
		MMSI  string       `json:"mmsi"`
		Route [][2]float64 `json:"route"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse route file %s: %w", path, err)
	}

	route := &Route{
		From:      doc.From,
		To:        doc.To,
		MMSI:      doc.MMSI,
		Waypoints: make([]Waypoint, len(doc.Route)),
	}
	for i, pair := range doc.Route {
		route.Waypoints[i] = Waypoint{Lon: pair[0], Lat: pair[1]}
	}

	return route, nil
}

// RouteSampler walks a piecewise-linear route at a fixed cruising speed,
// emitting one position sample per simulated interval.
//
// Route length is the planar degree length of the polyline scaled to
// nautical miles (1 degree = 60 nm). Samples land at 0, d, 2d, ... along
// the curve and a final sample is clamped exactly onto the destination
// rather than overshooting it, so a route of length L yields
// ceil(L/d) + 1 samples.
type RouteSampler struct {
	waypoints []Waypoint
	speed     float64       // knots
	interval  time.Duration // simulated time between samples
	start     time.Time

	cumulative []float64 // route length in nm up to each waypoint
	total      float64   // full route length in nm
	step       float64   // nm covered per interval

	index    int
	prevLat  float64
	prevLon  float64
	finished bool
}

// NewRouteSampler creates a sampler over the given waypoints. A zero start
// time means "now", truncated to the minute.
func NewRouteSampler(waypoints []Waypoint, speedKnots float64, interval time.Duration, start time.Time) (*RouteSampler, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%w: got %d waypoints", ErrInvalidRoute, len(waypoints))
	}
	if speedKnots <= 0 {
		return nil, fmt.Errorf("%w: got %.2f knots", ErrInvalidSpeed, speedKnots)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidInterval, interval)
	}

	cumulative := make([]float64, len(waypoints))
	for i := 1; i < len(waypoints); i++ {
		a, b := waypoints[i-1], waypoints[i]
		if a == b {
			return nil, fmt.Errorf("%w: waypoints %d and %d are identical", ErrInvalidRoute, i-1, i)
		}
		cumulative[i] = cumulative[i-1] + segmentLengthNM(a, b)
	}

	if start.IsZero() {
		start = time.Now().UTC().Truncate(time.Minute)
	}

	return &RouteSampler{
		waypoints:  waypoints,
		speed:      speedKnots,
		interval:   interval,
		start:      start.UTC(),
		cumulative: cumulative,
		total:      cumulative[len(cumulative)-1],
		step:       speedKnots * interval.Hours(),
	}, nil
}

// segmentLengthNM is the planar length of one route segment in nautical
// miles, matching the degree-length metric the route walk interpolates in.
func segmentLengthNM(a, b Waypoint) float64 {
	return math.Hypot(b.Lon-a.Lon, b.Lat-a.Lat) * 60
}

// Total returns the full route length in nautical miles.
func (rs *RouteSampler) Total() float64 {
	return rs.total
}

// SampleCount returns the number of samples a full walk will emit.
func (rs *RouteSampler) SampleCount() int {
	return int(math.Ceil(rs.total/rs.step)) + 1
}

// Reset rewinds the sampler to the start of the route.
func (rs *RouteSampler) Reset() {
	rs.index = 0
	rs.finished = false
}

// Next returns the next position sample along the route. The second return
// value is false once the destination sample has been emitted.
func (rs *RouteSampler) Next() (PositionSample, bool) {
	if rs.finished {
		return PositionSample{}, false
	}

	distance := float64(rs.index) * rs.step
	if distance >= rs.total {
		distance = rs.total
		rs.finished = true
	}

	lat, lon := rs.pointAt(distance)

	// Course for the first sample is 0; there is no prior heading.
	course := 0.0
	if rs.index > 0 {
		course = Bearing(rs.prevLat, rs.prevLon, lat, lon)
	}

	sample := PositionSample{
		Timestamp: rs.start.Add(time.Duration(rs.index) * rs.interval),
		Lat:       lat,
		Lon:       lon,
		Speed:     rs.speed,
		Course:    course,
	}

	rs.prevLat, rs.prevLon = lat, lon
	rs.index++

	return sample, true
}

// Samples walks the whole route and returns every sample in order.
func (rs *RouteSampler) Samples() []PositionSample {
	rs.Reset()
	samples := make([]PositionSample, 0, rs.SampleCount())
	for {
		sample, ok := rs.Next()
		if !ok {
			break
		}
		samples = append(samples, sample)
	}
	return samples
}

// pointAt interpolates the position at the given distance along the route.
func (rs *RouteSampler) pointAt(distance float64) (lat, lon float64) {
	if distance <= 0 {
		return rs.waypoints[0].Lat, rs.waypoints[0].Lon
	}
	last := len(rs.waypoints) - 1
	if distance >= rs.total {
		return rs.waypoints[last].Lat, rs.waypoints[last].Lon
	}

	for i := 1; i <= last; i++ {
		if distance > rs.cumulative[i] {
			continue
		}
		a, b := rs.waypoints[i-1], rs.waypoints[i]
		segment := rs.cumulative[i] - rs.cumulative[i-1]
		fraction := (distance - rs.cumulative[i-1]) / segment
		lat = a.Lat + (b.Lat-a.Lat)*fraction
		lon = a.Lon + (b.Lon-a.Lon)*fraction
		return lat, lon
	}

	return rs.waypoints[last].Lat, rs.waypoints[last].Lon
}
