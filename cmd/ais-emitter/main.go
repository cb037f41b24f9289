package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"go-ais-simulator/ais"
	"go-ais-simulator/emitter"
	"go-ais-simulator/logging"
)

func main() {
	config := emitter.DefaultConfig()
	var (
		routeFile  string
		serialPort string
		baudRate   int
		logLevel   string
		logDir     string
		quiet      bool
	)

	flag.StringVar(&config.Addr, "listen", config.Addr, "TCP listen address")
	flag.StringVar(&routeFile, "route", "route_output.json", "Route JSON file to replay")
	flag.StringVar(&config.MMSI, "mmsi", "", "Override the route file's MMSI (9 digits)")
	flag.Float64Var(&config.SpeedKnots, "speed", config.SpeedKnots, "Cruising speed in knots")
	flag.DurationVar(&config.Interval, "interval", config.Interval, "Simulated time between position reports")
	flag.Float64Var(&config.SpeedFactor, "speed-factor", config.SpeedFactor, "Time compression (1.0=real-time, 2.0=2x, -1=no delay)")
	flag.StringVar(&serialPort, "serial", "", "Serial port to mirror raw sentences to (e.g., /dev/ttyUSB0)")
	flag.IntVar(&baudRate, "baud", 38400, "Serial port baud rate")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&logDir, "log-dir", "", "Directory for rotated JSON logs (default: text on stderr)")
	flag.BoolVar(&quiet, "quiet", false, "Suppress info messages")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nAIS Vessel Simulator\n")
		fmt.Fprintf(os.Stderr, "Replays a precomputed sea route as a paced stream of AIVDM position reports over TCP.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if baudRate <= 0 {
		log.Fatal("Baud rate must be positive")
	}

	route, err := ais.LoadRoute(routeFile)
	if err != nil {
		log.Fatalf("Failed to load route: %v", err)
	}

	logger := logging.New(logLevel, logDir)

	e, err := emitter.New(config, route, logger)
	if err != nil {
		log.Fatalf("Failed to create emitter: %v", err)
	}

	if serialPort != "" {
		mode := &serial.Mode{
			BaudRate: baudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(serialPort, mode)
		if err != nil {
			log.Fatalf("Failed to open serial port %s: %v", serialPort, err)
		}
		defer port.Close()
		e.SetMirror(port)

		if !quiet {
			fmt.Fprintf(os.Stderr, "Mirroring sentences to serial port: %s at %d baud\n", serialPort, baudRate)
		}
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "Starting AIS emitter...\n")
		fmt.Fprintf(os.Stderr, "Route: %s -> %s (%d waypoints)\n", route.From, route.To, len(route.Waypoints))
		fmt.Fprintf(os.Stderr, "Speed: %.1f knots\n", config.SpeedKnots)
		fmt.Fprintf(os.Stderr, "Interval: %v\n", config.Interval)
		if config.SpeedFactor == emitter.NoDelay {
			fmt.Fprintf(os.Stderr, "Pacing: none (burst mode)\n")
		} else {
			fmt.Fprintf(os.Stderr, "Pacing: %.1fx real time\n", config.SpeedFactor)
		}
		fmt.Fprintf(os.Stderr, "Listening on %s\n", config.Addr)
		fmt.Fprintf(os.Stderr, "\nPress Ctrl+C to stop\n\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", config.Addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", config.Addr, err)
	}

	start := time.Now()
	if err := e.Serve(ctx, ln); err != nil {
		log.Fatalf("Emitter failed: %v", err)
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "Stopped after %v\n", time.Since(start).Round(time.Second))
	}
}
