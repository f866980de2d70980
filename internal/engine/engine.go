// Package engine drives the simulation: a single-threaded event loop over
// a time-ordered queue, the auction rounds, and the schedule-commit
// protocol that gates every schedule change a company stages.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/market"
	"github.com/flotillasim/flotilla/internal/ocean"
	"github.com/flotillasim/flotilla/internal/schedule"
	"github.com/flotillasim/flotilla/internal/shipping"
)

// DefaultHorizon is how far ahead of an auction its trades are announced,
// in hours. Thirty days.
const DefaultHorizon = 30 * 24

// Observer is notified after every executed event. data carries the event
// action's result, e.g. the allocation result of an auction round.
type Observer interface {
	Notify(ev *Event, data any)
}

// Hook runs before or after the main loop.
type Hook func(*Engine)

// Engine runs one simulation to event-queue exhaustion.
type Engine struct {
	world     *World
	book      *shipping.Book
	companies []market.Company
	auction   *market.Auction
	authority *Authority
	hq        *Headquarters
	observers []Observer
	log       *slog.Logger

	horizon float64
	timeout time.Duration
	preRun  []Hook
	postRun []Hook

	// pending is each vessel's event currently sitting in the queue.
	pending map[*fleet.Vessel]*Event
}

// Option configures an engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithHorizon sets the announcement lead time before each auction.
func WithHorizon(hours float64) Option {
	return func(e *Engine) { e.horizon = hours }
}

// WithTimeout bounds every company plugin call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithHeadquarters installs a headquarters built ahead of the engine, so
// companies constructed against it share the engine's world view.
func WithHeadquarters(hq *Headquarters) Option {
	return func(e *Engine) { e.hq = hq }
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithPreRunHook appends a hook run before the main loop, after the
// default pre-run steps.
func WithPreRunHook(h Hook) Option {
	return func(e *Engine) { e.preRun = append(e.preRun, h) }
}

// WithPostRunHook appends a hook run after the main loop.
func WithPostRunHook(h Hook) Option {
	return func(e *Engine) { e.postRun = append(e.postRun, h) }
}

// New creates an engine over the world, trade book and companies. Company
// order is registration order; it decides auction tie-breaks and stays
// fixed for the whole run. Vessels are bound to the world here.
func New(world *World, book *shipping.Book, companies []market.Company, opts ...Option) *Engine {
	e := &Engine{
		world:     world,
		book:      book,
		companies: companies,
		authority: NewAuthority(),
		log:       slog.Default(),
		horizon:   DefaultHorizon,
		timeout:   market.DefaultTimeout,
		pending:   make(map[*fleet.Vessel]*Event),
	}
	e.preRun = []Hook{placeVessels, informVesselLocations}
	for _, o := range opts {
		o(e)
	}
	e.auction = market.NewAuction(e.timeout, e.log)
	if e.hq == nil {
		e.hq = NewHeadquarters(world)
	}
	e.hq.register(companies)

	now := world.Clock().Now
	for _, c := range companies {
		for _, v := range c.Fleet() {
			v.Bind(world.Network(), now)
		}
	}
	return e
}

func (e *Engine) World() *World { return e.world }

func (e *Engine) Book() *shipping.Book { return e.book }

func (e *Engine) Companies() []market.Company { return e.companies }

func (e *Engine) Authority() *Authority { return e.authority }

func (e *Engine) Headquarters() *Headquarters { return e.hq }

// Run executes the simulation until the event queue is exhausted. Event
// action failures are logged and the loop continues; only context
// cancellation stops a run early.
func (e *Engine) Run(ctx context.Context) error {
	e.setUpTrades()
	for _, h := range e.preRun {
		h(e)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok := e.world.Queue().Pop()
		if !ok {
			break
		}
		data, err := e.execute(ctx, ev)
		if err != nil {
			e.log.Error("event action failed", "event", ev.String(), "error", err)
			continue
		}
		e.notify(ev, data)
	}

	for _, h := range e.postRun {
		h(e)
	}
	return nil
}

// setUpTrades seeds the queue with one announcement per trading time, each
// preceding its auction by the horizon. Trades already available at time
// zero cannot be announced ahead and go straight to auction.
func (e *Engine) setUpTrades() {
	for _, t := range e.book.Times() {
		if t <= 0 {
			e.mustPush(&Event{Kind: EventCargoAuction, Time: t})
			continue
		}
		announce := t - e.horizon
		if announce < 0 {
			announce = 0
		}
		e.mustPush(&Event{Kind: EventCargoAnnouncement, Time: announce, AuctionTime: t})
	}
}

// mustPush queues an event whose time the engine itself computed. A
// non-finite time here is a bug, not an input error.
func (e *Engine) mustPush(ev *Event) {
	if err := e.world.Queue().Push(ev); err != nil {
		panic(fmt.Sprintf("engine: push %v: %v", ev, err))
	}
}

func (e *Engine) notify(ev *Event, data any) {
	for _, o := range e.observers {
		o.Notify(ev, data)
	}
}

func (e *Engine) execute(ctx context.Context, ev *Event) (any, error) {
	switch ev.Kind {
	case EventCargoAnnouncement:
		return nil, e.announce(ctx, ev)
	case EventCargoAuction:
		return e.runAuction(ctx, ev.Time)
	case EventTravel, EventIdle, EventArrival, EventTransfer:
		return e.vesselEvent(ev)
	default:
		return nil, fmt.Errorf("engine: event kind %v cannot execute", ev.Kind)
	}
}

// announce informs every company of the trades auctioned at the event's
// auction time and queues the auction itself.
func (e *Engine) announce(ctx context.Context, ev *Event) error {
	trades := e.book.TradesAt(ev.AuctionTime)
	e.auction.AnnounceFuture(ctx, trades, ev.AuctionTime, e.companies)
	e.mustPush(&Event{Kind: EventCargoAuction, Time: ev.AuctionTime})
	return nil
}

// runAuction executes one auction round: distribute the trades realizing
// now, record the allocation, then hand every company its contracts and
// commit the schedules it stages in response.
func (e *Engine) runAuction(ctx context.Context, now float64) (*market.AllocationResult, error) {
	e.hq.refresh()
	trades := e.book.TradesAt(now)
	res := e.auction.Distribute(ctx, now, trades, e.companies)
	e.authority.AddAllocation(res)

	for _, name := range res.Ledger.Companies() {
		for _, c := range res.Ledger.Contracts(name) {
			c.Trade.Status = cargo.StatusAccepted
		}
	}
	for _, t := range res.Unallocated {
		t.Status = cargo.StatusRejected
	}

	sanitized := res.Ledger.Sanitized()
	for _, c := range e.companies {
		proposal, err := e.auction.Receive(ctx, c, res.Ledger.Contracts(c.Name()), sanitized)
		if err != nil {
			e.log.Warn("company receive failed, contracts stand unscheduled",
				"company", c.Name(),
				"time", now,
				"error", err)
			continue
		}
		e.commit(c, proposal)
	}
	return res, nil
}

// commit applies a staged schedule batch under the commit protocol. A
// duplicate trade across the batch rejects the whole batch; an infeasible
// schedule or an unawarded trade rejects only that vessel's schedule.
// Rejections are logged and never touch live schedules.
func (e *Engine) commit(c market.Company, proposal *market.ScheduleProposal) {
	if proposal == nil || len(proposal.Schedules) == 0 {
		return
	}

	vessels := make([]*fleet.Vessel, 0, len(proposal.Schedules))
	for v := range proposal.Schedules {
		vessels = append(vessels, v)
	}
	sort.Slice(vessels, func(i, j int) bool { return vessels[i].Name() < vessels[j].Name() })

	seen := make(map[string]string)
	for _, v := range vessels {
		for _, t := range proposal.Schedules[v].Trades() {
			if other, dup := seen[t.Key()]; dup {
				err := &CommitError{
					Code:    ErrCodeDuplicateTrade,
					Company: c.Name(),
					Message: fmt.Sprintf("trade %s on both %s and %s", t, other, v.Name()),
				}
				e.log.Warn("schedule batch rejected", "error", err)
				return
			}
			seen[t.Key()] = v.Name()
		}
	}

	for _, v := range vessels {
		sched := proposal.Schedules[v]
		if err := e.checkVesselSchedule(c, v, sched); err != nil {
			e.log.Warn("vessel schedule rejected", "error", err)
			continue
		}
		e.apply(v, sched)
	}
}

func (e *Engine) checkVesselSchedule(c market.Company, v *fleet.Vessel, sched *schedule.Schedule) error {
	if v.Owner() != c.Name() {
		return &CommitError{
			Code:    ErrCodeForeignVessel,
			Company: c.Name(),
			Vessel:  v.Name(),
			Message: fmt.Sprintf("vessel belongs to %s", v.Owner()),
		}
	}
	if !sched.VerifyTime() {
		return &CommitError{
			Code:    ErrCodeInfeasibleTime,
			Company: c.Name(),
			Vessel:  v.Name(),
			Message: "no consistent task times",
		}
	}
	if !sched.VerifyCargo() {
		return &CommitError{
			Code:    ErrCodeInfeasibleCargo,
			Company: c.Name(),
			Vessel:  v.Name(),
			Message: "cargo replay over- or underruns the hold",
		}
	}
	for _, t := range sched.Trades() {
		if !e.authority.Awarded(c.Name(), t) {
			return &CommitError{
				Code:    ErrCodeUnawardedTrade,
				Company: c.Name(),
				Vessel:  v.Name(),
				Message: fmt.Sprintf("no contract for trade %s", t),
			}
		}
	}
	return nil
}

// apply installs a committed schedule: the vessel's pending event is
// retracted, the schedule replaces the live one, and the new first step is
// queued.
func (e *Engine) apply(v *fleet.Vessel, sched *schedule.Schedule) {
	if p := e.pending[v]; p != nil {
		e.world.Queue().Remove(p)
		delete(e.pending, v)
	}
	v.ReplaceSchedule(sched)
	e.startNextEvent(v)
}

// startNextEvent queues the vessel's next scheduled step, if any. A travel
// event puts the vessel on journey the moment it is queued.
func (e *Engine) startNextEvent(v *fleet.Vessel) {
	step, ok := v.NextStep()
	if !ok {
		return
	}
	ev := stepEvent(v, step)
	if err := e.world.Queue().Push(ev); err != nil {
		e.log.Error("vessel step not queued",
			"vessel", v.Name(),
			"step", step.Kind.String(),
			"error", err)
		return
	}
	e.pending[v] = ev
	if ev.Kind == EventTravel {
		v.SetPosition(ocean.OnJourney{Origin: ev.Origin, Destination: ev.Destination, StartTime: ev.Started()})
	}
}

// vesselEvent executes a vessel's event: pop the step off the live
// schedule, mutate vessel state, then queue the following step.
func (e *Engine) vesselEvent(ev *Event) (any, error) {
	v := ev.Vessel
	if e.pending[v] != ev {
		return nil, fmt.Errorf("engine: %v is not the next event of %s", ev, v.Name())
	}
	delete(e.pending, v)
	v.PopStep()

	var data any
	switch ev.Kind {
	case EventTravel, EventArrival:
		v.SetPosition(ocean.Moored{Location: ev.Destination})
	case EventTransfer:
		var err error
		if ev.Pickup {
			err = v.Load(ev.Trade.CargoType, ev.Trade.Amount)
		} else {
			err = v.Unload(ev.Trade.CargoType, ev.Trade.Amount)
		}
		if err != nil {
			// Committed schedules passed cargo verification; a transfer
			// failing here means vessel state diverged from the schedule.
			return nil, fmt.Errorf("engine: transfer on %s: %w", v.Name(), err)
		}
		if !ev.Pickup {
			contract := e.authority.Fulfill(v.Owner(), ev.Trade)
			if contract == nil {
				e.log.Warn("delivery without contract",
					"vessel", v.Name(),
					"company", v.Owner(),
					"trade", ev.Trade.String())
			}
			data = contract
		}
	}

	e.startNextEvent(v)
	return data, nil
}

// stepEvent converts a schedule step into its queue event.
func stepEvent(v *fleet.Vessel, s schedule.Step) *Event {
	ev := &Event{
		Time:        s.Time,
		Vessel:      v,
		Trade:       s.Trade,
		Pickup:      s.TaskKind == schedule.Pickup,
		Origin:      s.Origin,
		Destination: s.Destination,
	}
	switch s.Kind {
	case schedule.StepTravel:
		ev.Kind = EventTravel
	case schedule.StepIdle:
		ev.Kind = EventIdle
	case schedule.StepArrival:
		ev.Kind = EventArrival
	case schedule.StepTransfer:
		ev.Kind = EventTransfer
	}
	return ev
}

// placeVessels moors vessels without a starting location at a random port,
// drawn from the world rng.
func placeVessels(e *Engine) {
	ports := e.world.Network().Ports()
	if len(ports) == 0 {
		return
	}
	for _, c := range e.companies {
		for _, v := range c.Fleet() {
			moored, ok := v.Position().(ocean.Moored)
			if !ok || moored.Location != (ocean.Location{}) {
				continue
			}
			v.SetPosition(ocean.Moored{Location: ports[e.world.Rand().Intn(len(ports))]})
		}
	}
}

// informVesselLocations reports every vessel's starting position to the
// observers. The events carry time -1 to sort before anything the run
// itself produces.
func informVesselLocations(e *Engine) {
	for _, c := range e.companies {
		for _, v := range c.Fleet() {
			moored, ok := v.Position().(ocean.Moored)
			if !ok {
				continue
			}
			e.notify(&Event{
				Kind:        EventVesselLocation,
				Time:        -1,
				Vessel:      v,
				Destination: moored.Location,
			}, nil)
		}
	}
}
