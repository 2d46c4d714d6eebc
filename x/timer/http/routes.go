package http

// Route patterns for the timers HTTP surface.
const (
	routeTimers       = "/v1/timers"
	routeTimerAt      = "/v1/timers/at/{index:[0-9]+}"
	routeTimer        = "/v1/timers/{id}"
	routeTimerInitial = "/v1/timers/{id}/initial"
	routeTimerSeconds = "/v1/timers/{id}/seconds"
	routeTimerEvents  = "/v1/timers/{id}/events"
	routeTimerCommand = "/v1/timers/{id}/{command:start|stop|toggle|reset}"
)

// Route names for mux URL building.
const (
	routeNameList    = "timers_list"
	routeNameAdd     = "timers_add"
	routeNameAt      = "timers_at"
	routeNameGet     = "timers_get"
	routeNameDelete  = "timers_delete"
	routeNameInitial = "timers_initial"
	routeNameSeconds = "timers_seconds"
	routeNameEvents  = "timers_events"
	routeNameCommand = "timers_command"
)
