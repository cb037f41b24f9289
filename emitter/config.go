package emitter

import (
	"errors"
	"fmt"
	"time"

	"go-ais-simulator/ais"
)

// NoDelay is the speed factor that disables pacing entirely: every
// envelope is sent back-to-back. Used for burst testing and backfill.
const NoDelay = -1.0

var ErrInvalidSpeedFactor = errors.New("speed factor must be positive or -1")

// Config holds all configuration options for the stream emitter.
type Config struct {
	Addr        string        // TCP listen address
	MMSI        string        // overrides the route document's MMSI when set
	SpeedKnots  float64       // cruising speed
	Interval    time.Duration // simulated time between position samples
	SpeedFactor float64       // time compression: 1 = real time, 2 = 2x, NoDelay = burst
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:        "localhost:8765",
		SpeedKnots:  20.0,
		Interval:    5 * time.Minute,
		SpeedFactor: 1.0,
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.SpeedFactor != NoDelay && c.SpeedFactor <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeedFactor, c.SpeedFactor)
	}
	if c.SpeedKnots <= 0 {
		return fmt.Errorf("%w: got %v", ais.ErrInvalidSpeed, c.SpeedKnots)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: got %v", ais.ErrInvalidInterval, c.Interval)
	}
	if c.MMSI != "" && !ais.ValidMMSI(c.MMSI) {
		return fmt.Errorf("%w: %q", ais.ErrInvalidMMSI, c.MMSI)
	}
	return nil
}
