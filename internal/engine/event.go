package engine

import (
	"fmt"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/ocean"
)

// EventKind identifies what an event does when it executes.
type EventKind int

const (
	// EventCargoAnnouncement tells companies about trades that will be
	// auctioned at the event's auction time.
	EventCargoAnnouncement EventKind = iota + 1
	// EventCargoAuction runs one auction round over the trades realizing
	// at the event's time.
	EventCargoAuction
	// EventTravel completes a vessel leg between two locations.
	EventTravel
	// EventIdle completes a vessel waiting for a time window to open.
	EventIdle
	// EventArrival marks a vessel reaching a task's port.
	EventArrival
	// EventTransfer completes loading or unloading of a trade's cargo.
	EventTransfer
	// EventVesselLocation reports a vessel's position to observers. Never
	// queued; emitted directly before the run starts.
	EventVesselLocation
)

func (k EventKind) String() string {
	switch k {
	case EventCargoAnnouncement:
		return "cargo_announcement"
	case EventCargoAuction:
		return "cargo_auction"
	case EventTravel:
		return "travel"
	case EventIdle:
		return "idle"
	case EventArrival:
		return "arrival"
	case EventTransfer:
		return "cargo_transfer"
	case EventVesselLocation:
		return "vessel_location"
	default:
		return "unknown"
	}
}

// Event is one entry of the simulation's event queue. Time is when the
// event occurs; for duration events that is the completion time, with the
// start recorded when the event is queued.
type Event struct {
	Kind EventKind
	Time float64

	// Vessel, Trade and Pickup describe vessel events. Trade is set for
	// arrival and transfer events; Pickup tells loading from unloading.
	Vessel *fleet.Vessel
	Trade  *cargo.Trade
	Pickup bool

	// Origin is set for travel events. Destination is the travel target
	// and doubles as the port of idle, arrival, transfer and location
	// events.
	Origin      ocean.Location
	Destination ocean.Location

	// AuctionTime is the round an announcement refers to.
	AuctionTime float64

	started float64
}

// Started is the time the event began. Meaningful once queued.
func (e *Event) Started() float64 { return e.started }

// Duration is the time the event spanned, zero for instantaneous events.
func (e *Event) Duration() float64 {
	if e.Time > e.started {
		return e.Time - e.started
	}
	return 0
}

// Same reports event identity: kind, time, the vessel, and for cargo
// events the trade and transfer direction. Used to retract a vessel's
// pending event when its schedule is replaced.
func (e *Event) Same(o *Event) bool {
	if o == nil || e.Kind != o.Kind || e.Time != o.Time || e.Vessel != o.Vessel {
		return false
	}
	if (e.Trade == nil) != (o.Trade == nil) {
		return false
	}
	if e.Trade != nil {
		return e.Trade.Key() == o.Trade.Key() && e.Pickup == o.Pickup
	}
	return true
}

func (e *Event) String() string {
	switch e.Kind {
	case EventCargoAnnouncement:
		return fmt.Sprintf("%s t=%.2f auction=%.2f", e.Kind, e.Time, e.AuctionTime)
	case EventCargoAuction:
		return fmt.Sprintf("%s t=%.2f", e.Kind, e.Time)
	case EventTravel:
		return fmt.Sprintf("%s t=%.2f %s %s->%s", e.Kind, e.Time, e.Vessel.Name(), e.Origin, e.Destination)
	case EventArrival, EventTransfer:
		dir := "dropoff"
		if e.Pickup {
			dir = "pickup"
		}
		return fmt.Sprintf("%s t=%.2f %s %s at %s", e.Kind, e.Time, e.Vessel.Name(), dir, e.Destination)
	default:
		return fmt.Sprintf("%s t=%.2f %s at %s", e.Kind, e.Time, e.Vessel.Name(), e.Destination)
	}
}
