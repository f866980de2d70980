// Package fleet holds the concrete vessels: position, speed, cargo hold,
// the live schedule and the journey log of executed steps. The engine is
// the only writer of vessel state; companies see copies and snapshots.
package fleet

import (
	"fmt"
	"math"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/ocean"
	"github.com/flotillasim/flotilla/internal/schedule"
)

// Vessel is one ship. It implements the scheduler's vessel view.
type Vessel struct {
	name     string
	speed    float64
	hold     *cargo.Hold
	position ocean.Position
	owner    string

	sched *schedule.Schedule

	keepJourneyLog bool
	journeyLog     []schedule.Step
}

// Option configures a vessel at construction.
type Option func(*Vessel)

// WithoutJourneyLog disables the per-vessel step log.
func WithoutJourneyLog() Option {
	return func(v *Vessel) { v.keepJourneyLog = false }
}

// New creates a vessel moored at the given location. The vessel has no
// schedule until Bind attaches it to a network and clock.
func New(name string, speed float64, capacities []cargo.Capacity, at ocean.Location, opts ...Option) *Vessel {
	v := &Vessel{
		name:           name,
		speed:          speed,
		hold:           cargo.NewHold(capacities),
		position:       ocean.Moored{Location: at},
		keepJourneyLog: true,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Bind attaches the vessel to the world it operates in and creates its
// empty schedule. Called once when the engine adopts the vessel.
func (v *Vessel) Bind(network ocean.Network, now func() float64) {
	v.sched = schedule.New(v, network, now)
}

func (v *Vessel) Name() string  { return v.name }
func (v *Vessel) Owner() string { return v.owner }

// SetOwner records the owning company. Called once at fleet registration.
func (v *Vessel) SetOwner(company string) { v.owner = company }

func (v *Vessel) String() string {
	return fmt.Sprintf("<%s at %v>", v.name, v.position)
}

func (v *Vessel) Position() ocean.Position { return v.position }

// SetPosition moves the vessel. Only the engine calls this, when a travel
// starts or an arrival executes.
func (v *Vessel) SetPosition(p ocean.Position) { v.position = p }

func (v *Vessel) Speed() float64 { return v.speed }

// TravelTime converts a distance into hours at the vessel's speed.
func (v *Vessel) TravelTime(distance float64) float64 {
	if math.IsInf(distance, 1) || v.speed <= 0 {
		return math.Inf(1)
	}
	return distance / v.speed
}

// LoadingTime is the hours needed to transfer the given amount, at the
// hold's loading rate for the cargo type.
func (v *Vessel) LoadingTime(cargoType string, amount float64) float64 {
	rate := v.hold.LoadingRate(cargoType)
	if rate <= 0 {
		return math.Inf(1)
	}
	return amount / rate
}

// Capacities describes the hold's containers.
func (v *Vessel) Capacities() []cargo.Capacity { return v.hold.Capacities() }

// CurrentCargo is the loaded amount of the given cargo type.
func (v *Vessel) CurrentCargo(cargoType string) float64 { return v.hold.Current(cargoType) }

// HasAnyCargo reports whether anything is loaded.
func (v *Vessel) HasAnyCargo() bool { return v.hold.HasAnyLoad() }

// HoldSnapshot returns a scratch copy of the hold for verification replays.
func (v *Vessel) HoldSnapshot() *cargo.Hold { return v.hold.Clone() }

// Load transfers cargo into the hold. Engine only, on transfer events.
func (v *Vessel) Load(cargoType string, amount float64) error {
	return v.hold.Load(cargoType, amount)
}

// Unload transfers cargo out of the hold. Engine only, on transfer events.
func (v *Vessel) Unload(cargoType string, amount float64) error {
	return v.hold.Unload(cargoType, amount)
}

// Schedule returns a copy of the vessel's current schedule. Companies trial
// inserts on the copy and offer it back for commit; the live schedule only
// changes through ReplaceSchedule.
func (v *Vessel) Schedule() *schedule.Schedule { return v.sched.Copy() }

// ReplaceSchedule installs a committed schedule as the live one. Engine
// only; validation happens before the commit, not here.
func (v *Vessel) ReplaceSchedule(s *schedule.Schedule) { v.sched = s }

// NextStep peeks at the live schedule's next step.
func (v *Vessel) NextStep() (schedule.Step, bool) { return v.sched.Next() }

// PopStep consumes the live schedule's next step and logs it.
func (v *Vessel) PopStep() schedule.Step {
	step := v.sched.Pop()
	if v.keepJourneyLog {
		v.journeyLog = append(v.journeyLog, step)
	}
	return step
}

// JourneyLog returns the executed steps in order.
func (v *Vessel) JourneyLog() []schedule.Step { return v.journeyLog }

// Info is the sanitized public view of a vessel: what competitors may see.
// No hold contents, no schedule.
type Info struct {
	Name       string
	Owner      string
	Speed      float64
	Position   ocean.Position
	Capacities []cargo.Capacity
}

// Info snapshots the vessel's public state.
func (v *Vessel) Info() Info {
	return Info{
		Name:       v.name,
		Owner:      v.owner,
		Speed:      v.speed,
		Position:   v.position,
		Capacities: v.Capacities(),
	}
}

// InfoAll snapshots a whole fleet.
func InfoAll(vessels []*Vessel) []Info {
	out := make([]Info, len(vessels))
	for i, v := range vessels {
		out[i] = v.Info()
	}
	return out
}
