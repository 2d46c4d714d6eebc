package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterMux binds gorilla/mux routes.
func (h *Handler) RegisterMux(r *mux.Router) {
	r.HandleFunc(routeTimers, h.handleList).Methods(http.MethodGet).Name(routeNameList)
	r.HandleFunc(routeTimers, h.handleAdd).Methods(http.MethodPost).Name(routeNameAdd)
	r.HandleFunc(routeTimerAt, h.handleAt).Methods(http.MethodGet).Name(routeNameAt)
	r.HandleFunc(routeTimer, h.handleGet).Methods(http.MethodGet).Name(routeNameGet)
	r.HandleFunc(routeTimer, h.handleDelete).Methods(http.MethodDelete).Name(routeNameDelete)
	r.HandleFunc(routeTimerInitial, h.handleInitial).Methods(http.MethodPost).Name(routeNameInitial)
	r.HandleFunc(routeTimerSeconds, h.handleSeconds).Methods(http.MethodPost).Name(routeNameSeconds)
	r.HandleFunc(routeTimerEvents, h.handleEvents).Methods(http.MethodGet).Name(routeNameEvents)
	r.HandleFunc(routeTimerCommand, h.handleCommand).Methods(http.MethodPost).Name(routeNameCommand)
}
