package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/countdown/x/timer"
)

func newTestRouter(t *testing.T, minTimers, initial int) (*mux.Router, *timer.Collection) {
	t.Helper()
	cfg := timer.DefaultCollectionConfig(zerolog.New(io.Discard))
	cfg.MinTimers = minTimers
	cfg.InitialTimers = initial
	c := timer.NewCollection(cfg)
	t.Cleanup(c.Close)

	r := mux.NewRouter()
	NewHandler(c, zerolog.New(io.Discard), WithHeartbeat(time.Hour)).RegisterMux(r)
	return r, c
}

func do(t *testing.T, r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, rd))
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) timerView {
	t.Helper()
	var v timerView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func urlFor(t *testing.T, r *mux.Router, name string, pairs ...string) string {
	t.Helper()
	u, err := r.Get(name).URL(pairs...)
	require.NoError(t, err)
	return u.String()
}

func TestHandler_ListAndAdd(t *testing.T) {
	t.Parallel()
	r, c := newTestRouter(t, 1, 1)

	rec := do(t, r, http.MethodPost, routeTimers, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	added := decodeView(t, rec)
	require.Equal(t, 1, added.Index)
	require.Equal(t, timer.ModeStopped, added.Mode)
	require.Equal(t, "00:00:00", added.Display)
	require.InDelta(t, 1.0, added.Fraction, 1e-9)

	rec = do(t, r, http.MethodGet, routeTimers, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Timers []timerView `json:"timers"`
		Count  int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	require.Equal(t, c.List()[0].ID(), list.Timers[0].ID)
	require.Equal(t, added.ID, list.Timers[1].ID)

	rec = do(t, r, http.MethodGet, urlFor(t, r, routeNameAt, "index", "1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, added.ID, decodeView(t, rec).ID)

	rec = do(t, r, http.MethodGet, urlFor(t, r, routeNameAt, "index", "7"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_InitialAndCommands(t *testing.T) {
	t.Parallel()
	r, c := newTestRouter(t, 1, 1)
	id := c.List()[0].ID()

	rec := do(t, r, http.MethodPost, urlFor(t, r, routeNameInitial, "id", id),
		map[string]int{"hours": 1, "minutes": 2, "seconds": 75})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	require.Equal(t, initialView{Hours: 1, Minutes: 2, Seconds: 59}, v.Initial)
	require.Equal(t, 3600+120+59, v.StartSeconds)
	require.Equal(t, "01:02:59", v.Display)

	rec = do(t, r, http.MethodPost, urlFor(t, r, routeNameCommand, "id", id, "command", "start"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	require.Equal(t, timer.ModeRunning, v.Mode)
	require.True(t, v.Active)

	rec = do(t, r, http.MethodPost, urlFor(t, r, routeNameCommand, "id", id, "command", "toggle"), nil)
	require.Equal(t, timer.ModePaused, decodeView(t, rec).Mode)

	rec = do(t, r, http.MethodPost, urlFor(t, r, routeNameSeconds, "id", id), map[string]int{"delta": 60})
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	require.Equal(t, timer.ModePaused, v.Mode)
	require.Equal(t, v.StartSeconds, 3600+120+59+60)

	rec = do(t, r, http.MethodPost, urlFor(t, r, routeNameCommand, "id", id, "command", "reset"), nil)
	v = decodeView(t, rec)
	require.Equal(t, timer.ModeStopped, v.Mode)
	require.Equal(t, 3600+120+59, v.RemainingSeconds)

	rec = do(t, r, http.MethodPost, "/v1/timers/"+id+"/explode", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_BadRequests(t *testing.T) {
	t.Parallel()
	r, c := newTestRouter(t, 1, 1)
	id := c.List()[0].ID()

	rec := do(t, r, http.MethodPost, urlFor(t, r, routeNameSeconds, "id", id), map[string]int{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "missing_delta")

	req := httptest.NewRequest(http.MethodPost, urlFor(t, r, routeNameInitial, "id", id), strings.NewReader("{"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_json")

	rec = do(t, r, http.MethodGet, urlFor(t, r, routeNameGet, "id", "nope"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "timer_not_found")
}

func TestHandler_DeleteHonoursMinimum(t *testing.T) {
	t.Parallel()
	r, c := newTestRouter(t, 1, 2)
	first, second := c.List()[0], c.List()[1]

	rec := do(t, r, http.MethodDelete, urlFor(t, r, routeNameDelete, "id", second.ID()), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []*timer.Timer{first}, c.List())

	rec = do(t, r, http.MethodDelete, urlFor(t, r, routeNameDelete, "id", first.ID()), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "minimum_timers")

	rec = do(t, r, http.MethodDelete, urlFor(t, r, routeNameDelete, "id", second.ID()), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_EventsStreamStatesUntilRemoved(t *testing.T) {
	t.Parallel()
	r, c := newTestRouter(t, 0, 1)
	tm := c.List()[0]

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+urlFor(t, r, routeNameEvents, "id", tm.ID()), nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := bufio.NewReader(resp.Body)

	event, v := readEvent(t, events)
	require.Empty(t, event)
	require.Equal(t, tm.ID(), v.ID)
	require.Equal(t, 0, v.StartSeconds)

	tm.AddInitialSeconds(5)
	event, v = readEvent(t, events)
	require.Empty(t, event)
	require.Equal(t, 5, v.StartSeconds)
	require.Equal(t, "00:00:05", v.Display)

	require.NoError(t, c.Remove(tm))
	event, v = readEvent(t, events)
	require.Equal(t, "removed", event)
	require.Equal(t, -1, v.Index)

	_, err = events.ReadString('\n')
	require.ErrorIs(t, err, io.EOF)
}

// readEvent returns the next event name and payload, skipping comments.
func readEvent(t *testing.T, rd *bufio.Reader) (string, timerView) {
	t.Helper()
	var event string
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, ":"), line == "":
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var v timerView
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &v))
			return event, v
		}
	}
}
