package store

import (
	"go-ais-simulator/ais"
	"go-ais-simulator/ingest"
)

// TrackStats summarizes an already-fetched track.
type TrackStats struct {
	DistanceNM        float64
	AverageSpeedKnots float64
}

// Stats computes the great-circle distance covered by a track and the
// average speed over its time span. Tracks with fewer than two points
// yield zeroes.
func Stats(track []ingest.Record) TrackStats {
	if len(track) < 2 {
		return TrackStats{}
	}

	var distance float64
	for i := 1; i < len(track); i++ {
		prev, cur := track[i-1], track[i]
		distance += ais.HaversineNM(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
	}

	hours := track[len(track)-1].Timestamp.Sub(track[0].Timestamp).Hours()
	stats := TrackStats{DistanceNM: distance}
	if hours > 0 {
		stats.AverageSpeedKnots = distance / hours
	}
	return stats
}
