// Package company holds the baseline shipping company used in tests,
// demos and as the reference for plugin authors.
package company

import (
	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/ocean"
)

// Headquarters is the read-only world view a company operates against. The
// engine implements it; everything it returns is a copy or a value.
type Headquarters interface {
	// CurrentTime is the simulation clock.
	CurrentTime() float64

	// Port resolves a port by name.
	Port(name string) (ocean.Location, bool)

	// Distance is the network distance between two locations, +Inf when no
	// route exists.
	Distance(a, b ocean.Location) float64

	// JourneyLocation interpolates where a vessel travelling at speed is
	// along a journey at the given time.
	JourneyLocation(j ocean.OnJourney, speed, at float64) ocean.Location

	// Fleets returns the sanitized fleet of every company, keyed by
	// company name. Cached per time step.
	Fleets() map[string][]fleet.Info
}
