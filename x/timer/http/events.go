package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/compose-network/countdown/x/timer"
)

// handleEvents streams the timer's states as server-sent events until the
// client goes away or the timer leaves the collection.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	states := t.Subscribe(ctx)
	seqs := h.timers.Subscribe(ctx)

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	log := h.log.With().Str("timer_id", t.ID()).Logger()
	log.Debug().Msg("Event stream opened")
	defer log.Debug().Msg("Event stream closed")

	last := t.State()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			last = s
			if err := writeEvent(w, "", newView(t, h.timers.IndexOf(t), s)); err != nil {
				return
			}
		case seq, ok := <-seqs:
			if !ok {
				return
			}
			if slices.Contains(seq, t) {
				continue
			}
			_ = writeEvent(w, "removed", newView(t, -1, last))
			_ = rc.Flush()
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v timerView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

var _ Collection = (*timer.Collection)(nil)
