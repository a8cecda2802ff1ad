package types

import "errors"

// Sentinel kinds for input validation. Callers match them with errors.Is.
var (
	ErrInvalidPlan    = errors.New("invalid hiring plan")
	ErrInvalidWeights = errors.New("invalid weights")
)
