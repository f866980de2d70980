// Package schedule implements the temporal vessel schedule: the committed
// sequence of pickup and drop-off tasks of one vessel, held as a simple
// temporal network (STN) of difference constraints. Feasibility is a
// negative-cycle check over that network; cargo feasibility is a replay of
// the task sequence against a snapshot of the vessel's hold.
package schedule

import (
	"math"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/ocean"
)

// Vessel is the scheduler's view of the vessel a schedule belongs to. The
// fleet package implements it; the schedule only ever reads.
type Vessel interface {
	Position() ocean.Position
	Speed() float64
	// TravelTime converts a distance into hours, +Inf for an unreachable
	// distance.
	TravelTime(distance float64) float64
	// LoadingTime is the cargo transfer duration in hours.
	LoadingTime(cargoType string, amount float64) float64
	// HoldSnapshot returns a scratch copy of the vessel's current hold.
	HoldSnapshot() *cargo.Hold
}

// TaskKind distinguishes pickup from drop-off tasks.
type TaskKind int

const (
	Pickup TaskKind = iota + 1
	Dropoff
)

func (k TaskKind) String() string {
	if k == Pickup {
		return "pickup"
	}
	return "dropoff"
}

// task is one scheduled stop. Tasks live in an arena keyed by a stable ID;
// schedule order is the ordered ID slice on Schedule, so inserts and pops
// never relabel existing tasks.
type task struct {
	id       int
	trade    *cargo.Trade
	kind     TaskKind
	transfer float64
	// startDone marks a task whose arrival has already executed; only its
	// cargo transfer remains pending. At most the first task can be in
	// this state.
	startDone bool
}

// location is the port the task happens at.
func (t *task) location() ocean.Location {
	if t.kind == Pickup {
		return t.trade.Origin
	}
	return t.trade.Destination
}

// windowStart is the earliest arrival the trade's window permits for this
// task, 0 if unbounded.
func (t *task) windowStart() float64 {
	if t.kind == Pickup {
		return t.trade.Window.PickupStart()
	}
	return t.trade.Window.DropoffStart()
}

// windowEnd is the latest arrival the trade's window permits for this task,
// +Inf if unbounded.
func (t *task) windowEnd() float64 {
	if t.kind == Pickup {
		return t.trade.Window.PickupEnd()
	}
	return t.trade.Window.DropoffEnd()
}

// Schedule is a vessel's committed task sequence. The zero value is not
// usable; create with New.
//
// A schedule is always copy-on-propose: proposers clone it with Copy, trial
// Insert on the clone, and only a successful engine commit replaces the
// vessel's live schedule.
type Schedule struct {
	vessel  Vessel
	network ocean.Network
	now     func() float64

	arena  map[int]*task
	order  []int // task IDs in execution order
	nextID int

	// timeOrigin is the time of the schedule's reference node: the time of
	// the last executed step, or the commit time of the first insert.
	timeOrigin float64

	// headBound is an extra lower bound on the first pending timepoint,
	// tightened on every pop so constraints never drift behind the clock.
	headBound float64

	// lastStep remembers the most recently popped step; a travel step that
	// already targets the next task's port counts as "in location".
	lastStep *Step
}

// New creates an empty schedule for a vessel. The now function supplies the
// simulation clock; it is read when the first task enters an empty schedule
// to pin the time origin.
func New(vessel Vessel, network ocean.Network, now func() float64) *Schedule {
	return &Schedule{
		vessel:  vessel,
		network: network,
		now:     now,
		arena:   make(map[int]*task),
	}
}

// TaskCount returns the number of tasks (pickups plus drop-offs) currently
// scheduled.
func (s *Schedule) TaskCount() int { return len(s.order) }

// Len returns the number of pending timepoints: two per task, one for a
// task whose arrival already executed.
func (s *Schedule) Len() int {
	n := 0
	for _, id := range s.order {
		if s.arena[id].startDone {
			n++
		} else {
			n += 2
		}
	}
	return n
}

// Trades returns each trade referenced by the schedule once, in first
// occurrence order.
func (s *Schedule) Trades() []*cargo.Trade {
	seen := make(map[string]bool, len(s.order))
	var out []*cargo.Trade
	for _, id := range s.order {
		t := s.arena[id]
		key := t.trade.Key()
		if !seen[key] {
			seen[key] = true
			out = append(out, t.trade)
		}
	}
	return out
}

// TaskView is a read-only description of one scheduled stop.
type TaskView struct {
	Trade *cargo.Trade
	Kind  TaskKind
	// ArrivalDone marks a stop whose arrival already executed.
	ArrivalDone bool
}

// Tasks returns the scheduled stops in execution order.
func (s *Schedule) Tasks() []TaskView {
	out := make([]TaskView, 0, len(s.order))
	for _, id := range s.order {
		t := s.arena[id]
		out = append(out, TaskView{Trade: t.trade, Kind: t.kind, ArrivalDone: t.startDone})
	}
	return out
}

// Copy deep-clones the schedule's task arena and ordering. The vessel and
// network references are shared; trades are shared (immutable except for
// status, which the schedule never touches).
func (s *Schedule) Copy() *Schedule {
	c := &Schedule{
		vessel:     s.vessel,
		network:    s.network,
		now:        s.now,
		arena:      make(map[int]*task, len(s.arena)),
		order:      append([]int(nil), s.order...),
		nextID:     s.nextID,
		timeOrigin: s.timeOrigin,
		headBound:  s.headBound,
	}
	for id, t := range s.arena {
		tc := *t
		c.arena[id] = &tc
	}
	if s.lastStep != nil {
		step := *s.lastStep
		c.lastStep = &step
	}
	return c
}

// InsertionPoints returns all valid 1-based positions at which a new pickup
// may be placed. Position 1 is unavailable while the first task is
// mid-flight (its arrival already executed).
func (s *Schedule) InsertionPoints() []int {
	if len(s.order) == 0 {
		return []int{1}
	}
	first := 1
	if s.arena[s.order[0]].startDone {
		first = 2
	}
	points := make([]int, 0, len(s.order)+2-first)
	for i := first; i <= len(s.order)+1; i++ {
		points = append(points, i)
	}
	return points
}

// Insert appends the trade's pickup and drop-off at the end of the
// schedule.
func (s *Schedule) Insert(trade *cargo.Trade) error {
	points := s.InsertionPoints()
	last := points[len(points)-1]
	return s.InsertAt(trade, last, last)
}

// InsertAt places the trade's pickup at position pickupIdx and its drop-off
// at position dropoffIdx among the current tasks (both 1-based; equal
// indices mean the drop-off directly follows the pickup). Existing tasks at
// or after each position shift back by one.
//
// Returns an InvalidInsertionError and leaves the schedule unchanged if the
// indices do not fit.
func (s *Schedule) InsertAt(trade *cargo.Trade, pickupIdx, dropoffIdx int) error {
	if err := s.checkIndices(pickupIdx, dropoffIdx); err != nil {
		return err
	}
	if len(s.order) == 0 {
		s.timeOrigin = s.now()
		s.headBound = s.timeOrigin
	}
	transfer := s.vessel.LoadingTime(trade.CargoType, trade.Amount)
	s.insertTask(pickupIdx-1, &task{trade: trade, kind: Pickup, transfer: transfer})
	// The pickup insert shifted positions at dropoffIdx and beyond by one,
	// so the drop-off lands directly after its intended slot. When the
	// pickup went last, dropoffIdx may name the slot past the new end;
	// clamp it to an append.
	at := dropoffIdx
	if at > len(s.order) {
		at = len(s.order)
	}
	s.insertTask(at, &task{trade: trade, kind: Dropoff, transfer: transfer})
	return nil
}

func (s *Schedule) checkIndices(pickupIdx, dropoffIdx int) error {
	n := len(s.order)
	fail := func(reason string) error {
		return &InvalidInsertionError{Pickup: pickupIdx, Dropoff: dropoffIdx, Tasks: n, Reason: reason}
	}
	switch {
	case pickupIdx > dropoffIdx:
		return fail("drop-off would precede pickup")
	case pickupIdx < 1:
		return fail("pickup position before schedule start")
	case pickupIdx == 1 && n > 0 && s.arena[s.order[0]].startDone:
		return fail("first task is mid-flight and cannot be preceded")
	case pickupIdx > n+1:
		return fail("pickup position beyond schedule end")
	case pickupIdx != n+1 && dropoffIdx > n+1:
		return fail("drop-off position beyond schedule end")
	case pickupIdx == n+1 && dropoffIdx > n+2:
		return fail("drop-off position beyond schedule end")
	}
	return nil
}

// insertTask places t at 0-based position i in the order, assigning it a
// fresh arena ID.
func (s *Schedule) insertTask(i int, t *task) {
	s.nextID++
	t.id = s.nextID
	s.arena[t.id] = t
	s.order = append(s.order, 0)
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = t.id
}

// Verify is the single feasibility gate: the schedule must be both
// time-feasible and cargo-feasible before it may be offered for commit.
func (s *Schedule) Verify() bool {
	return s.VerifyTime() && s.VerifyCargo()
}

// VerifyTime reports whether the schedule's constraint network admits a
// consistent assignment of task times, i.e. contains no negative-weight
// cycle.
func (s *Schedule) VerifyTime() bool {
	nodes, edges := s.constraintGraph()
	return !hasNegativeCycle(nodes, edges)
}

// VerifyCargo replays the task sequence against a scratch copy of the
// vessel's hold: load on pickup, unload on drop-off. The schedule is
// cargo-feasible iff no step over- or underflows a container and the hold
// ends empty.
func (s *Schedule) VerifyCargo() bool {
	hold := s.vessel.HoldSnapshot()
	for _, id := range s.order {
		t := s.arena[id]
		var err error
		if t.kind == Pickup {
			err = hold.Load(t.trade.CargoType, t.trade.Amount)
		} else {
			err = hold.Unload(t.trade.CargoType, t.trade.Amount)
		}
		if err != nil {
			return false
		}
	}
	return hold.Empty()
}

// CompletionTime returns the earliest time at which the last task's finish
// constraint resolves, i.e. the earliest feasible end of the whole
// schedule. Zero for an empty schedule. Used to rank competing proposals
// and for idle accounting.
func (s *Schedule) CompletionTime() float64 {
	if len(s.order) == 0 {
		return 0
	}
	finish := s.timeOrigin
	prevLocation, ok := s.headOrigin()
	for i, id := range s.order {
		t := s.arena[id]
		if i == 0 && t.startDone {
			// Arrival already executed; only the transfer remains. The
			// head bound carries the pending transfer's committed end.
			finish = math.Max(math.Max(finish+t.transfer, s.headBound), t.windowStart()+t.transfer)
			prevLocation, ok = t.location(), true
			continue
		}
		arrive := finish
		if ok {
			arrive += s.vessel.TravelTime(s.network.Distance(prevLocation, t.location()))
		}
		arrive = math.Max(arrive, t.windowStart())
		if i == 0 {
			arrive = math.Max(arrive, s.headBound)
		}
		finish = arrive + t.transfer
		prevLocation, ok = t.location(), true
	}
	return finish
}

// headOrigin is the location the first pending task is reached from. A
// popped travel step already paid the leg to its destination, so the head
// starts there even if the vessel's position has not caught up yet.
func (s *Schedule) headOrigin() (ocean.Location, bool) {
	if s.lastStep != nil && s.lastStep.Kind == StepTravel {
		return s.lastStep.Destination, true
	}
	return s.currentVesselLocation()
}

// currentVesselLocation resolves the vessel's position to a concrete
// location at the schedule's time origin. ok is false when the position
// cannot be resolved (nil position on a bare test vessel).
func (s *Schedule) currentVesselLocation() (ocean.Location, bool) {
	switch p := s.vessel.Position().(type) {
	case ocean.Moored:
		return p.Location, true
	case ocean.OnJourney:
		return s.network.JourneyLocation(p, s.vessel.Speed(), s.timeOrigin), true
	default:
		return ocean.Location{}, false
	}
}
