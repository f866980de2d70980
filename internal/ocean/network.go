package ocean

import (
	"math"
	"sort"
	"sync"
)

// Network supplies point-to-point distances and port lookup. Distances must
// be deterministic for a fixed pair; an unreachable pair yields +Inf, which
// propagates into infeasible time windows downstream rather than erroring.
type Network interface {
	// Distance returns the distance between two locations, or +Inf if no
	// route exists.
	Distance(a, b Location) float64

	// Port returns the port with the given name.
	Port(name string) (Location, bool)

	// Ports returns all known ports.
	Ports() []Location

	// JourneyLocation interpolates the position of a vessel travelling at
	// the given speed along a journey at time now. Clamped to the journey's
	// endpoints.
	JourneyLocation(j OnJourney, speed, now float64) Location
}

// UnitNetwork is a Euclidean network on the unit square. Ports outside
// [0,1]^2 are unreachable.
type UnitNetwork struct {
	ports map[string]Location
}

// NewUnitNetwork creates a network over the given ports.
func NewUnitNetwork(ports []Location) *UnitNetwork {
	m := make(map[string]Location, len(ports))
	for _, p := range ports {
		m[p.Name] = p
	}
	return &UnitNetwork{ports: m}
}

func (n *UnitNetwork) Port(name string) (Location, bool) {
	p, ok := n.ports[name]
	return p, ok
}

// Ports returns all ports sorted by name, so callers that pick ports by
// index stay deterministic.
func (n *UnitNetwork) Ports() []Location {
	all := make([]Location, 0, len(n.ports))
	for _, p := range n.ports {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

func (n *UnitNetwork) Distance(a, b Location) float64 {
	for _, c := range []float64{a.X, a.Y, b.X, b.Y} {
		if c < 0 || c > 1 {
			return math.Inf(1)
		}
	}
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func (n *UnitNetwork) JourneyLocation(j OnJourney, speed, now float64) Location {
	distance := n.Distance(j.Origin, j.Destination)
	if math.IsInf(distance, 1) || speed <= 0 {
		return j.Origin
	}
	travelTime := distance / speed
	if now <= j.StartTime {
		return j.Origin
	}
	if now >= j.StartTime+travelTime {
		return j.Destination
	}
	frac := (now - j.StartTime) / travelTime
	return Location{
		X: j.Origin.X + (j.Destination.X-j.Origin.X)*frac,
		Y: j.Origin.Y + (j.Destination.Y-j.Origin.Y)*frac,
	}
}

type pair struct {
	a, b Location
}

// CachedNetwork memoizes Distance lookups. The scheduler queries the same
// pairs repeatedly during proposal search; a fixed pair is deterministic so
// caching is safe for the lifetime of the underlying network.
//
// Safe for concurrent use: company plugins query distances from their own
// goroutines, and a timed-out plugin call may still be running when the
// next one starts.
type CachedNetwork struct {
	Network
	mu        sync.RWMutex
	distances map[pair]float64
}

// NewCachedNetwork wraps a network with a distance memo.
func NewCachedNetwork(n Network) *CachedNetwork {
	return &CachedNetwork{Network: n, distances: make(map[pair]float64)}
}

func (c *CachedNetwork) Distance(a, b Location) float64 {
	k := pair{a, b}
	c.mu.RLock()
	d, ok := c.distances[k]
	c.mu.RUnlock()
	if ok {
		return d
	}
	d = c.Network.Distance(a, b)
	c.mu.Lock()
	c.distances[k] = d
	c.mu.Unlock()
	return d
}
