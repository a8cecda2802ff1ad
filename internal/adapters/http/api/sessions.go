package api

import (
	"net/http"

	service "github.com/okian/tqi/internal/app"
	"github.com/okian/tqi/internal/domain/aggregate"
	"github.com/okian/tqi/internal/domain/types"
)

// SessionHandler handles the /sessions resource.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type listResponse struct {
	Sessions []string `json:"sessions"`
}

// HandleCreate handles POST /sessions requests.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req scenarioRequest
	if err := decodeBody(op, w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if err := validateRoster(req.Roster); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	p, err := req.params(h.deps.Defaults())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	snap, err := h.deps.CreateSession(r.Context(), req.Roster, p)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/sessions/"+snap.ID)
	writeJSON(w, http.StatusCreated, snap)
}

// HandleList handles GET /sessions requests.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.deps.ListSessions(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.list_sessions", err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Sessions: ids})
}

// HandleGet handles GET /sessions/{id} requests.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot("api.get_session", w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleDelete handles DELETE /sessions/{id} requests.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, Wrap("api.delete_session", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHistogram handles GET /sessions/{id}/histogram requests.
func (h *SessionHandler) HandleHistogram(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot("api.session_histogram", w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Histogram)
}

// HandleResult handles GET /sessions/{id}/result requests with the flat
// key/value form of the latest result.
func (h *SessionHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot("api.session_result", w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Result.Flatten())
}

// HandlePutPlan handles PUT /sessions/{id}/plan requests.
func (h *SessionHandler) HandlePutPlan(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_plan"
	var req planRequest
	if err := decodeBody(op, w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	plan, err := req.toPlan()
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.respond(op, w, r, func(id string) (service.Snapshot, error) {
		return h.deps.UpdatePlan(r.Context(), id, plan)
	})
}

// HandlePutTarget handles PUT /sessions/{id}/target requests.
func (h *SessionHandler) HandlePutTarget(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_target"
	var req types.TargetProfile
	if err := decodeBody(op, w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	h.respond(op, w, r, func(id string) (service.Snapshot, error) {
		return h.deps.UpdateTarget(r.Context(), id, req)
	})
}

// HandlePutWeights handles PUT /sessions/{id}/weights requests.
func (h *SessionHandler) HandlePutWeights(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_weights"
	var req types.Weights
	if err := decodeBody(op, w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	h.respond(op, w, r, func(id string) (service.Snapshot, error) {
		return h.deps.UpdateWeights(r.Context(), id, req)
	})
}

// HandlePutFilter handles PUT /sessions/{id}/filter requests.
func (h *SessionHandler) HandlePutFilter(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_filter"
	var req aggregate.GroupFilter
	if err := decodeBody(op, w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	h.respond(op, w, r, func(id string) (service.Snapshot, error) {
		return h.deps.UpdateFilter(r.Context(), id, req)
	})
}

// HandleReseed handles POST /sessions/{id}/reseed requests.
func (h *SessionHandler) HandleReseed(w http.ResponseWriter, r *http.Request) {
	const op = "api.reseed"
	var req reseedRequest
	if err := decodeBody(op, w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	h.respond(op, w, r, func(id string) (service.Snapshot, error) {
		return h.deps.Reseed(r.Context(), id, req.Seed)
	})
}

func (h *SessionHandler) snapshot(op string, w http.ResponseWriter, r *http.Request) (service.Snapshot, bool) {
	snap, err := h.deps.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return service.Snapshot{}, false
	}
	return snap, true
}

func (h *SessionHandler) respond(op string, w http.ResponseWriter, r *http.Request, update func(id string) (service.Snapshot, error)) {
	snap, err := update(r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
