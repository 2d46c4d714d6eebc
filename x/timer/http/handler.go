package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	apicommon "github.com/compose-network/countdown/server/api"
	"github.com/compose-network/countdown/x/timer"
)

// DefaultHeartbeat is the interval of keep-alive comments on event streams.
const DefaultHeartbeat = 15 * time.Second

// Collection is the part of timer.Collection the handler needs.
type Collection interface {
	Add() *timer.Timer
	Remove(t *timer.Timer) error
	Get(id string) (*timer.Timer, bool)
	At(i int) (*timer.Timer, bool)
	IndexOf(t *timer.Timer) int
	List() []*timer.Timer
	Subscribe(ctx context.Context) <-chan []*timer.Timer
}

type Handler struct {
	timers    Collection
	log       zerolog.Logger
	heartbeat time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithHeartbeat sets the keep-alive interval of event streams.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

func NewHandler(timers Collection, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		timers:    timers,
		log:       log.With().Str("component", "timers-http").Logger(),
		heartbeat: DefaultHeartbeat,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list := h.timers.List()
	views := make([]timerView, 0, len(list))
	for i, t := range list {
		views = append(views, newView(t, i, t.State()))
	}
	apicommon.WriteJSON(w, http.StatusOK, map[string]any{"timers": views, "count": len(views)})
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	t := h.timers.Add()
	h.writeTimer(w, http.StatusCreated, t)
}

func (h *Handler) handleAt(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer", nil)
		return
	}
	t, ok := h.timers.At(idx)
	if !ok {
		apicommon.WriteError(w, r, http.StatusNotFound, "timer_not_found", "no timer at index", map[string]int{"index": idx})
		return
	}
	h.writeTimer(w, http.StatusOK, t)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeTimer(w, http.StatusOK, t)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	err := h.timers.Remove(t)
	switch {
	case errors.Is(err, timer.ErrTimerNotFound):
		writeNotFound(w, r, t.ID())
	case errors.Is(err, timer.ErrMinimumTimers):
		apicommon.WriteError(w, r, http.StatusConflict, "minimum_timers", err.Error(), nil)
	case err != nil:
		h.log.Error().Err(err).Str("timer_id", t.ID()).Msg("Failed to remove timer")
		apicommon.WriteError(w, r, http.StatusInternalServerError, "internal", "failed to remove timer", nil)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	switch mux.Vars(r)["command"] {
	case "start":
		t.Start()
	case "stop":
		t.Stop()
	case "toggle":
		t.Toggle()
	case "reset":
		t.Reset()
	default:
		apicommon.WriteError(w, r, http.StatusBadRequest, "unknown_command", "unknown command", nil)
		return
	}
	h.writeTimer(w, http.StatusOK, t)
}

func (h *Handler) handleInitial(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	defer r.Body.Close()

	var req initialReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_json", "failed to decode request", nil)
		return
	}

	if req.Hours != 0 {
		t.AddInitialHours(req.Hours)
	}
	if req.Minutes != 0 {
		t.AddInitialMinutes(req.Minutes)
	}
	if req.Seconds != 0 {
		t.AddInitialSeconds(req.Seconds)
	}
	h.writeTimer(w, http.StatusOK, t)
}

func (h *Handler) handleSeconds(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	defer r.Body.Close()

	var req secondsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "invalid_json", "failed to decode request", nil)
		return
	}
	if req.Delta == nil {
		apicommon.WriteError(w, r, http.StatusBadRequest, "missing_delta", "delta is required", nil)
		return
	}

	t.AddSeconds(*req.Delta)
	h.writeTimer(w, http.StatusOK, t)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*timer.Timer, bool) {
	id := mux.Vars(r)["id"]
	t, ok := h.timers.Get(id)
	if !ok {
		writeNotFound(w, r, id)
		return nil, false
	}
	return t, true
}

func (h *Handler) writeTimer(w http.ResponseWriter, status int, t *timer.Timer) {
	apicommon.WriteJSON(w, status, newView(t, h.timers.IndexOf(t), t.State()))
}

func writeNotFound(w http.ResponseWriter, r *http.Request, id string) {
	apicommon.WriteError(w, r, http.StatusNotFound, "timer_not_found", "timer not found", map[string]string{"id": id})
}
