package engine

import (
	"sync"

	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/market"
	"github.com/flotillasim/flotilla/internal/ocean"
)

// Headquarters is the read-only world view handed to company plugins. It
// serves time, network queries, and sanitized competitor fleets without
// exposing anything mutable.
//
// Plugins call it from their own goroutines, including goroutines the
// engine has already abandoned, so every method is safe for concurrent
// use.
type Headquarters struct {
	world     *World
	companies []market.Company

	mu        sync.Mutex
	fleetsAt  float64
	haveCache bool
	fleets    map[string][]fleet.Info
}

// NewHeadquarters creates a headquarters over the world. Companies are
// built against it before the engine exists; the engine registers them
// when it starts up.
func NewHeadquarters(world *World) *Headquarters {
	return &Headquarters{world: world}
}

func (h *Headquarters) register(companies []market.Company) {
	h.mu.Lock()
	h.companies = companies
	h.haveCache = false
	h.mu.Unlock()
}

// CurrentTime is the simulation clock.
func (h *Headquarters) CurrentTime() float64 { return h.world.CurrentTime() }

// Port resolves a port by name.
func (h *Headquarters) Port(name string) (ocean.Location, bool) {
	return h.world.Network().Port(name)
}

// Distance is the network distance between two locations, +Inf when no
// route exists.
func (h *Headquarters) Distance(a, b ocean.Location) float64 {
	return h.world.Network().Distance(a, b)
}

// JourneyLocation interpolates where a vessel travelling at speed is along
// a journey at the given time.
func (h *Headquarters) JourneyLocation(j ocean.OnJourney, speed, at float64) ocean.Location {
	return h.world.Network().JourneyLocation(j, speed, at)
}

// Fleets returns the sanitized fleet of every company keyed by company
// name. The snapshot is rebuilt at most once per time step.
func (h *Headquarters) Fleets() map[string][]fleet.Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.world.CurrentTime()
	if !h.haveCache || h.fleetsAt < now {
		fleets := make(map[string][]fleet.Info, len(h.companies))
		for _, c := range h.companies {
			fleets[c.Name()] = fleet.InfoAll(c.Fleet())
		}
		h.fleets = fleets
		h.fleetsAt = now
		h.haveCache = true
	}

	out := make(map[string][]fleet.Info, len(h.fleets))
	for name, infos := range h.fleets {
		out[name] = append([]fleet.Info(nil), infos...)
	}
	return out
}

// refresh forces the next Fleets call to rebuild, used by the engine right
// before informing companies so they see current positions.
func (h *Headquarters) refresh() {
	h.mu.Lock()
	h.haveCache = false
	h.mu.Unlock()
}
