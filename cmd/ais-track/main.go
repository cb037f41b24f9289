package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go-ais-simulator/ais"
	"go-ais-simulator/store"
)

func main() {
	var (
		dbPath   string
		mmsi     string
		startStr string
		endStr   string
	)

	flag.StringVar(&dbPath, "db", "ais_data.db", "SQLite database file")
	flag.StringVar(&mmsi, "mmsi", "", "Vessel MMSI (9 digits)")
	flag.StringVar(&startStr, "start", "", "Window start (RFC3339, optional)")
	flag.StringVar(&endStr, "end", "", "Window end (RFC3339, optional)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -mmsi <mmsi> [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nAIS Track Query\n")
		fmt.Fprintf(os.Stderr, "Prints a vessel's stored track ordered by time, with distance and speed statistics.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if !ais.ValidMMSI(mmsi) {
		log.Fatalf("MMSI must be exactly 9 numeric digits, got %q", mmsi)
	}

	var start, end *time.Time
	if startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			log.Fatalf("Invalid start time: %v", err)
		}
		start = &t
	}
	if endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			log.Fatalf("Invalid end time: %v", err)
		}
		end = &t
	}

	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	track, err := db.FetchTrack(context.Background(), mmsi, start, end)
	if err != nil {
		log.Fatalf("Failed to fetch track: %v", err)
	}

	fmt.Printf("Track for MMSI %s: %d points\n", mmsi, len(track))
	for _, rec := range track {
		speed, course := "-", "-"
		if rec.Speed != nil {
			speed = fmt.Sprintf("%.1f kn", *rec.Speed)
		}
		if rec.Course != nil {
			course = fmt.Sprintf("%.1f deg", *rec.Course)
		}
		fmt.Printf("  %s  %9.5f, %10.5f  sog=%s cog=%s\n",
			rec.Timestamp.Format(time.RFC3339), rec.Lat, rec.Lon, speed, course)
	}

	stats := store.Stats(track)
	fmt.Printf("Total distance: %.2f nm\n", stats.DistanceNM)
	fmt.Printf("Average speed:  %.2f knots\n", stats.AverageSpeedKnots)
}
