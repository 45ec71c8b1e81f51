package domain

import "time"

// Flight identifies the leg a booking or pairing is made for. Search and pricing live
// with the external inventory provider; only the identifiers are kept here.
type Flight struct {
	Number  string
	Airline string
	Route   string
	Date    time.Time
}

// RouteKey groups bookings that share a route and a departure day.
type RouteKey struct {
	Route string
	Date  time.Time
}

func (k RouteKey) String() string {
	return k.Route + ":" + k.Date.Format("2006-01-02")
}
