package http

// initialReq is the JSON schema for POST routeTimerInitial. Values are deltas.
type initialReq struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// secondsReq is the JSON schema for POST routeTimerSeconds
type secondsReq struct {
	Delta *int `json:"delta"`
}
