package tqi

import "errors"

// Sentinel kinds for engine errors beyond input validation.
var (
	ErrInvalidSweep = errors.New("invalid sweep request")
)
