package schedule

import (
	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/ocean"
)

// StepKind identifies what the vessel does next.
type StepKind int

const (
	StepTravel StepKind = iota + 1
	StepIdle
	StepArrival
	StepTransfer
)

func (k StepKind) String() string {
	switch k {
	case StepTravel:
		return "travel"
	case StepIdle:
		return "idle"
	case StepArrival:
		return "arrival"
	case StepTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Step describes the vessel's next scheduled action. The schedule only
// describes; the engine turns steps into events and drives Pop as they
// execute.
type Step struct {
	Kind StepKind
	// Time is the absolute completion time of the step.
	Time float64

	// Trade and TaskKind are set for arrival and transfer steps.
	Trade    *cargo.Trade
	TaskKind TaskKind

	// Origin and Destination are set for travel steps; Destination doubles
	// as the port of idle, arrival and transfer steps.
	Origin      ocean.Location
	Destination ocean.Location
}

// Next returns the vessel's next step without consuming it, or ok false for
// an empty schedule.
func (s *Schedule) Next() (Step, bool) {
	if len(s.order) == 0 {
		return Step{}, false
	}
	return s.stepAt(0), true
}

// stepAt builds the step for the i-th pending timepoint. Only index 0 and,
// after a virtual removal, index 1 are ever asked for.
func (s *Schedule) stepAt(i int) Step {
	t := s.arena[s.order[i]]
	if i == 0 && t.startDone {
		return s.transferStep(t)
	}
	return s.headStep(t)
}

// headStep decides between arrival, travel and idle for a task whose
// arrival is still pending: arrive immediately when the vessel is (or will
// be, by its current travel step) at the task's port and the time window
// has opened, travel when it is elsewhere, idle out the remaining wait
// otherwise.
func (s *Schedule) headStep(t *task) Step {
	dest := t.location()
	idle := t.windowStart() - s.timeOrigin
	atLocation := s.atOrHeadedTo(dest)
	if atLocation && idle <= 0 {
		return Step{Kind: StepArrival, Time: s.timeOrigin, Trade: t.trade, TaskKind: t.kind, Destination: dest}
	}
	if !atLocation {
		origin, _ := s.currentVesselLocation()
		travel := s.vessel.TravelTime(s.network.Distance(origin, dest))
		return Step{Kind: StepTravel, Time: s.timeOrigin + travel, Origin: origin, Destination: dest}
	}
	return Step{Kind: StepIdle, Time: t.windowStart(), Destination: dest}
}

func (s *Schedule) transferStep(t *task) Step {
	return Step{
		Kind:        StepTransfer,
		Time:        s.timeOrigin + t.transfer,
		Trade:       t.trade,
		TaskKind:    t.kind,
		Destination: t.location(),
	}
}

// atOrHeadedTo reports whether the vessel is moored at dest or its most
// recently popped step is a travel ending there.
func (s *Schedule) atOrHeadedTo(dest ocean.Location) bool {
	if p, ok := s.vessel.Position().(ocean.Moored); ok && p.Location == dest {
		return true
	}
	return s.lastStep != nil && s.lastStep.Kind == StepTravel && s.lastStep.Destination == dest
}

// Pop consumes the next step and advances the schedule head. Travel and
// idle steps leave the task list untouched; an arrival marks its task
// mid-flight; a transfer removes its task. The head time moves to the
// step's completion time and the following step's time becomes a lower
// bound on the new head, so already-executed progress can never be
// constrained backwards.
//
// Pop panics on an empty schedule; callers gate on Next.
func (s *Schedule) Pop() Step {
	step, ok := s.Next()
	if !ok {
		panic("schedule: pop of empty schedule")
	}
	switch step.Kind {
	case StepArrival:
		s.arena[s.order[0]].startDone = true
	case StepTransfer:
		delete(s.arena, s.order[0])
		s.order = s.order[1:]
	}
	s.timeOrigin = step.Time
	last := step
	s.lastStep = &last
	if len(s.order) > 0 {
		next := s.stepAt(0)
		if next.Time > s.headBound {
			s.headBound = next.Time
		}
	}
	return step
}
