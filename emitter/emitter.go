package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go-ais-simulator/ais"
)

// fallbackMMSI is used when neither the config nor the route document
// names a vessel.
const fallbackMMSI = "123456789"

// Emitter replays one route as a paced stream of AIS position-report
// envelopes, one JSON line per sample.
type Emitter struct {
	config Config
	route  *ais.Route
	mmsi   string
	log    *slog.Logger

	mu     sync.Mutex
	mirror io.Writer
}

// New creates an emitter for the given route. Construction fails before
// any session starts when the config or route is invalid.
func New(config Config, route *ais.Route, logger *slog.Logger) (*Emitter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	mmsi := config.MMSI
	if mmsi == "" {
		mmsi = route.MMSI
	}
	if mmsi == "" {
		mmsi = fallbackMMSI
	}
	if !ais.ValidMMSI(mmsi) {
		return nil, fmt.Errorf("%w: %q", ais.ErrInvalidMMSI, mmsi)
	}

	// Validate the route walk up front so a bad route fails here, not
	// on the first client connection.
	if _, err := ais.NewRouteSampler(route.Waypoints, config.SpeedKnots, config.Interval, time.Time{}); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Emitter{
		config: config,
		route:  route,
		mmsi:   mmsi,
		log:    logger,
	}, nil
}

// SetMirror sets a secondary writer that receives every raw sentence,
// terminated NMEA-style. Used to feed a serial-attached chartplotter.
func (e *Emitter) SetMirror(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mirror = w
}

// Stream walks the route once and writes one envelope per sample to w,
// pacing sends by simulated time divided by the speed factor.
//
// A peer that hangs up mid-stream is a finished consumer, not a fault:
// Stream returns nil. Any other write error is returned to the caller.
// Retry policy, if wanted, belongs to a caller that restarts Stream.
func (e *Emitter) Stream(ctx context.Context, w io.Writer) error {
	sampler, err := ais.NewRouteSampler(e.route.Waypoints, e.config.SpeedKnots, e.config.Interval, time.Time{})
	if err != nil {
		return err
	}

	e.log.Info("starting stream",
		"mmsi", e.mmsi,
		"from", e.route.From,
		"to", e.route.To,
		"samples", sampler.SampleCount(),
		"speed_factor", e.config.SpeedFactor)

	enc := json.NewEncoder(w)
	var prev time.Time
	sent := 0

	for {
		sample, ok := sampler.Next()
		if !ok {
			break
		}

		if err := e.pace(ctx, prev, sample.Timestamp); err != nil {
			return err
		}

		sentence, err := ais.Encode(e.mmsi, sample.Lat, sample.Lon, sample.Speed, sample.Course, sample.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to encode position report: %w", err)
		}

		envelope := ais.Envelope{
			Kind:      ais.KindPositionReport,
			MMSI:      e.mmsi,
			Timestamp: sample.Timestamp,
			Payload:   []string{sentence},
		}

		if err := enc.Encode(envelope); err != nil {
			if isDisconnect(err) {
				e.log.Info("peer disconnected", "sent", sent)
				return nil
			}
			return fmt.Errorf("failed to send envelope: %w", err)
		}
		sent++

		e.mirrorSentence(sentence)
		e.log.Debug("sent position report",
			"lat", sample.Lat, "lon", sample.Lon, "course", sample.Course,
			"timestamp", sample.Timestamp)

		prev = sample.Timestamp
	}

	e.log.Info("route complete", "sent", sent)
	return nil
}

// pace waits out the simulated-time gap between two samples, compressed
// by the speed factor. The wait is a cancellable timer so shutdown can
// interrupt it.
func (e *Emitter) pace(ctx context.Context, prev, current time.Time) error {
	if e.config.SpeedFactor == NoDelay || prev.IsZero() {
		return ctx.Err()
	}

	delay := time.Duration(float64(current.Sub(prev)) / e.config.SpeedFactor)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Emitter) mirrorSentence(sentence string) {
	e.mu.Lock()
	mirror := e.mirror
	e.mu.Unlock()
	if mirror == nil {
		return
	}
	if _, err := fmt.Fprintf(mirror, "%s\r\n", sentence); err != nil {
		e.log.Error("mirror write failed", "err", err)
	}
}

// Serve accepts connections and streams the full route to each client.
// Closing the listener or cancelling the context stops the server; a
// failed stream is logged and does not take down other sessions.
func (e *Emitter) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept failed: %w", err)
			}

			e.log.Info("client connected", "remote_addr", conn.RemoteAddr())
			g.Go(func() error {
				defer closeOrLog(e.log, conn)
				if err := e.Stream(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
					e.log.Error("stream failed", "remote_addr", conn.RemoteAddr(), "err", err)
				}
				return nil
			})
		}
	})

	return g.Wait()
}

func closeOrLog(log *slog.Logger, conn net.Conn) {
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Error("error closing connection", "err", err, "remote_addr", conn.RemoteAddr())
	}
}

// isDisconnect reports whether a write error means the peer went away.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
