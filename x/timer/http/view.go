package http

import "github.com/compose-network/countdown/x/timer"

type initialView struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// timerView is the JSON representation of a timer.
type timerView struct {
	ID               string      `json:"id"`
	Index            int         `json:"index"`
	StartSeconds     int         `json:"start_seconds"`
	RemainingSeconds int         `json:"remaining_seconds"`
	Mode             timer.Mode  `json:"mode"`
	Fraction         float64     `json:"fraction"`
	Active           bool        `json:"active"`
	Display          string      `json:"display"`
	Initial          initialView `json:"initial"`
}

func newView(t *timer.Timer, index int, s timer.State) timerView {
	h, m, sec := t.Initial()
	return timerView{
		ID:               t.ID(),
		Index:            index,
		StartSeconds:     s.StartSeconds,
		RemainingSeconds: s.RemainingSeconds,
		Mode:             s.Mode,
		Fraction:         s.Fraction(),
		Active:           s.IsActive(),
		Display:          timer.FormatSeconds(s.RemainingSeconds),
		Initial:          initialView{Hours: h, Minutes: m, Seconds: sec},
	}
}
