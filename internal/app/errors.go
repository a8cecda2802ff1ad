package service

import (
	"errors"

	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/tqi"
	"github.com/okian/tqi/internal/domain/types"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
)

const kindOther = "other"

// kindOf returns the metric label for a rejected input.
func kindOf(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidPlan):
		return "invalid_plan"
	case errors.Is(err, types.ErrInvalidWeights):
		return "invalid_weights"
	case errors.Is(err, tqi.ErrInvalidSweep):
		return "invalid_sweep"
	case errors.Is(err, model.ErrInvalidRecord):
		return "invalid_roster"
	default:
		return kindOther
	}
}
