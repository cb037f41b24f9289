package ais

import "errors"

// Common errors returned by the AIS simulator core
var (
	ErrInvalidRoute    = errors.New("route must contain at least two distinct waypoints")
	ErrInvalidSpeed    = errors.New("speed must be positive")
	ErrInvalidInterval = errors.New("sampling interval must be positive")
	ErrInvalidMMSI     = errors.New("mmsi must be exactly 9 numeric digits")
	ErrDecode          = errors.New("cannot decode sentence")
)
