package engine

import (
	"math/rand"

	"github.com/flotillasim/flotilla/internal/ocean"
)

// World bundles the simulation environment: the network (wrapped in a
// distance cache), the clock, the event queue, and the seeded rng that
// drives every random decision of a run.
type World struct {
	network *ocean.CachedNetwork
	clock   *Clock
	queue   *EventQueue
	rng     *rand.Rand
}

// NewWorld creates a world over the network. The seed fixes the rng, so
// equal seeds with equal inputs replay identical runs.
func NewWorld(network ocean.Network, seed int64) *World {
	clock := NewClock()
	return &World{
		network: ocean.NewCachedNetwork(network),
		clock:   clock,
		queue:   NewEventQueue(clock),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Network returns the distance-cached network.
func (w *World) Network() ocean.Network { return w.network }

// Clock returns the simulation clock.
func (w *World) Clock() *Clock { return w.clock }

// Queue returns the event queue.
func (w *World) Queue() *EventQueue { return w.queue }

// Rand returns the world rng. Main loop only.
func (w *World) Rand() *rand.Rand { return w.rng }

// CurrentTime is the time of the last dequeued event.
func (w *World) CurrentTime() float64 { return w.clock.Now() }
