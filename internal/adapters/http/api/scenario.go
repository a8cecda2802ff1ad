package api

import (
	"net/http"
)

// ScenarioHandler handles stateless score and sweep requests.
type ScenarioHandler struct {
	deps ScenarioDependencies
}

// NewScenarioHandler creates a new scenario handler.
func NewScenarioHandler(deps ScenarioDependencies) *ScenarioHandler {
	return &ScenarioHandler{deps: deps}
}

// HandleScore handles POST /score requests.
func (h *ScenarioHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	req, ok := h.decode(op, w, r)
	if !ok {
		return
	}
	p, err := req.params(h.deps.Defaults())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	out, err := h.deps.Score(r.Context(), req.Roster, p, req.Seed)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSweep handles POST /sweep requests.
func (h *ScenarioHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	const op = "api.sweep"
	req, ok := h.decode(op, w, r)
	if !ok {
		return
	}
	p, err := req.params(h.deps.Defaults())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	summary, err := h.deps.Sweep(r.Context(), req.Roster, p, req.Runs, req.Seed)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ScenarioHandler) decode(op string, w http.ResponseWriter, r *http.Request) (scenarioRequest, bool) {
	var req scenarioRequest
	if err := decodeBody(op, w, r, &req); err != nil {
		writeFailure(w, err)
		return req, false
	}
	if err := validateRoster(req.Roster); err != nil {
		writeFailure(w, Wrap(op, err))
		return req, false
	}
	return req, true
}
