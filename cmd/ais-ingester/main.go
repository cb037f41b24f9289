package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-ais-simulator/ingest"
	"go-ais-simulator/logging"
	"go-ais-simulator/store"
)

func main() {
	var (
		addr           string
		dbPath         string
		reportPath     string
		strictChecksum bool
		dialTimeout    time.Duration
		logLevel       string
		logDir         string
		quiet          bool
	)

	flag.StringVar(&addr, "connect", "localhost:8765", "Emitter address to connect to")
	flag.StringVar(&dbPath, "db", "ais_data.db", "SQLite database file")
	flag.StringVar(&reportPath, "report", "data_quality_report.txt", "Quality report output file")
	flag.BoolVar(&strictChecksum, "strict-checksum", false, "Reject sentences whose checksum does not verify")
	flag.DurationVar(&dialTimeout, "timeout", 10*time.Second, "Connect timeout")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&logDir, "log-dir", "", "Directory for rotated JSON logs (default: text on stderr)")
	flag.BoolVar(&quiet, "quiet", false, "Suppress info messages")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nAIS Ingester\n")
		fmt.Fprintf(os.Stderr, "Consumes a stream of AIS envelopes, validates and deduplicates them into SQLite,\n")
		fmt.Fprintf(os.Stderr, "and writes a data quality report at session end.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	logger := logging.New(logLevel, logDir)

	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	defer conn.Close()

	if !quiet {
		fmt.Fprintf(os.Stderr, "Connected to %s\n", addr)
		fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Quality report: %s\n", reportPath)
	}

	reportFile, err := os.Create(reportPath)
	if err != nil {
		log.Fatalf("Failed to create report file: %v", err)
	}
	defer reportFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Closing the connection is the cancellation signal that unblocks
	// the read loop.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	pipeline := ingest.New(db, logger)
	pipeline.StrictChecksum = strictChecksum
	pipeline.ReportSink = reportFile

	err = pipeline.Run(ctx, conn)
	report := pipeline.Report()

	if !quiet {
		fmt.Fprintf(os.Stderr, "Session ended: %d messages, %d stored, %d rejected\n",
			report.TotalMessages, report.StoredRecords, report.Rejected())
	}

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, net.ErrClosed) {
		log.Fatalf("Ingest failed: %v", err)
	}
}
