// Package ocean models the operational space: locations, ports, journeys
// and the distance oracle the scheduler builds constraint edges from.
package ocean

import "fmt"

// Location is a point in the operational space. Ports are named locations;
// an unnamed Location is an intermediate point (e.g. a vessel mid-journey).
//
// Location is a comparable value type: two locations are the same iff name
// and both coordinates match.
type Location struct {
	Name string
	X    float64
	Y    float64
}

func (l Location) String() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("(%.3f, %.3f)", l.X, l.Y)
}

// Position is where a vessel currently is: moored at a fixed location or
// in transit between two locations. The only variants are Moored and
// OnJourney.
type Position interface {
	position()
}

// Moored marks a vessel at a fixed location.
type Moored struct {
	Location Location
}

func (Moored) position() {}

func (m Moored) String() string { return m.Location.String() }

// OnJourney marks a vessel in transit between two locations since StartTime.
type OnJourney struct {
	Origin      Location
	Destination Location
	StartTime   float64
}

func (OnJourney) position() {}

func (j OnJourney) String() string {
	return fmt.Sprintf("%s->%s (since %.2f)", j.Origin, j.Destination, j.StartTime)
}
