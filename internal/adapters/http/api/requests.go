package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/tqi/internal/app"
	"github.com/okian/tqi/internal/domain/aggregate"
	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/types"
)

// maxBodyBytes bounds request bodies; rosters are a few thousand records.
const maxBodyBytes = 8 << 20

// planRequest mirrors the OpenAPI HiringPlan schema. Count is decoded as a
// number so fractional or negative values surface as invalid_plan rather
// than as a JSON type error.
type planRequest struct {
	Count           float64   `json:"count"`
	AgeWeights      []float64 `json:"age_weights"`
	GraduateRate    float64   `json:"graduate_rate"`
	SeniorPotential float64   `json:"senior_potential"`
}

func (p planRequest) toPlan() (types.HiringPlan, error) {
	count, err := types.CountFromFloat(p.Count)
	if err != nil {
		return types.HiringPlan{}, err
	}
	plan := types.HiringPlan{
		Count:           count,
		GraduateRate:    p.GraduateRate,
		SeniorPotential: p.SeniorPotential,
	}
	if p.AgeWeights != nil {
		if len(p.AgeWeights) != types.AgeBracketCount {
			return types.HiringPlan{}, fmt.Errorf("%w: age_weights needs %d values, got %d",
				types.ErrInvalidPlan, types.AgeBracketCount, len(p.AgeWeights))
		}
		copy(plan.AgeWeights[:], p.AgeWeights)
	}
	if err := plan.Validate(); err != nil {
		return types.HiringPlan{}, err
	}
	return plan, nil
}

// scenarioRequest is the body of POST /score, POST /sweep and POST /sessions.
// Omitted parameter groups take the service defaults.
type scenarioRequest struct {
	Roster  []model.StaffRecord    `json:"roster"`
	Plan    *planRequest           `json:"plan,omitempty"`
	Target  *types.TargetProfile   `json:"target,omitempty"`
	Weights *types.Weights         `json:"weights,omitempty"`
	Filter  *aggregate.GroupFilter `json:"filter,omitempty"`
	Seed    *int64                 `json:"seed,omitempty"`
	Runs    int                    `json:"runs,omitempty"`
}

func (s scenarioRequest) params(defaults service.Params) (service.Params, error) {
	p := defaults
	if s.Plan != nil {
		plan, err := s.Plan.toPlan()
		if err != nil {
			return service.Params{}, err
		}
		p.Plan = plan
	}
	if s.Target != nil {
		p.Target = *s.Target
	}
	if s.Weights != nil {
		p.Weights = *s.Weights
	}
	if s.Filter != nil {
		p.Filter = *s.Filter
	}
	return p, nil
}

// validateRoster rejects records whose levels fall outside the closed sets.
func validateRoster(roster []model.StaffRecord) error {
	if err := model.ValidateAll(roster); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}
	return nil
}

type reseedRequest struct {
	Seed int64 `json:"seed"`
}

// decodeBody decodes a single JSON value from the body into v.
func decodeBody(op string, w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return NewKind(op, ErrBadRequest)
	}
	return nil
}
