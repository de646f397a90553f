package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/config"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/metrics"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/session"
)

const maxParticipants = 16

// Handler holds all HTTP handler dependencies.
type Handler struct {
	mgr    *session.Manager
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(mgr *session.Manager, loader *config.Loader) http.Handler {
	h := &Handler{mgr: mgr, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/sessions", h.startSession)
	h.mux.HandleFunc("GET /v1/sessions/{id}", h.getSession)
	h.mux.HandleFunc("POST /v1/sessions/{id}/choose", h.choose)
	h.mux.HandleFunc("POST /v1/sessions/{id}/reevaluate", h.reevaluate)
	h.mux.HandleFunc("GET /v1/sessions/{id}/stream", h.stream)
	h.mux.HandleFunc("DELETE /v1/sessions/{id}", h.endSession)
	h.mux.HandleFunc("GET /v1/dialogues", h.listDialogues)
	h.mux.HandleFunc("GET /v1/memory", h.exportMemory)
	h.mux.HandleFunc("POST /v1/memory/clear", h.clearMemory)
	h.mux.HandleFunc("POST /v1/settings/reload", h.reloadSettings)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

type startRequest struct {
	Dialogue     string                       `json:"dialogue"`
	Participants map[string]participant.State `json:"participants"`
}

type chooseRequest struct {
	Index   *int `json:"index"`
	FromAll bool `json:"from_all"`
}

// POST /v1/sessions: start a conversation.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Dialogue == "" {
		writeError(w, http.StatusBadRequest, "dialogue is required")
		return
	}
	if len(req.Participants) > maxParticipants {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%d participants exceeds max %d", len(req.Participants), maxParticipants))
		return
	}

	names := make([]string, 0, len(req.Participants))
	for name := range req.Participants {
		names = append(names, name)
	}
	slices.Sort(names)
	ps := make([]*participant.Values, 0, len(names))
	for _, name := range names {
		if name == "" {
			writeError(w, http.StatusBadRequest, "participant name must not be empty")
			return
		}
		ps = append(ps, participant.FromState(name, req.Participants[name]))
	}

	snap, err := h.mgr.Start(r.Context(), req.Dialogue, ps)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GET /v1/sessions/{id}
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := h.mgr.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /v1/sessions/{id}/choose: pick an option by index.
func (h *Handler) choose(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req chooseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}

	choose := h.mgr.Choose
	if req.FromAll {
		choose = h.mgr.ChooseFromAll
	}
	snap, err := choose(r.Context(), id, *req.Index)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /v1/sessions/{id}/reevaluate: recompute options after host state changed.
func (h *Handler) reevaluate(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := h.mgr.Reevaluate(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DELETE /v1/sessions/{id}
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.mgr.End(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "ended": true})
}

// GET /v1/dialogues[?participant=name]: list the catalog, optionally only
// the dialogues involving a participant.
func (h *Handler) listDialogues(w http.ResponseWriter, r *http.Request) {
	list := h.mgr.Dialogues()
	if name := r.URL.Query().Get("participant"); name != "" {
		list = h.mgr.DialoguesFor(name)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dialogues": list,
	})
}

// GET /v1/memory: dump visit and selection history.
func (h *Handler) exportMemory(w http.ResponseWriter, r *http.Request) {
	state, err := h.mgr.ExportMemory(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dialogues": state})
}

// POST /v1/memory/clear
func (h *Handler) clearMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.ClearMemory(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// POST /v1/settings/reload: re-read the settings file. Registered
// OnChange callbacks apply it.
func (h *Handler) reloadSettings(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusServiceUnavailable, "no settings file configured")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":           true,
		"version":            cfg.Version,
		"no_satisfied_child": cfg.Dialogue.NoSatisfiedChild,
		"clear_on_reload":    cfg.Memory.ClearOnReload,
	})
}

// GET /healthz: always 200 (liveness).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the session queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.mgr.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid session id: %s", err))
		return uuid.Nil, false
	}
	return id, true
}
