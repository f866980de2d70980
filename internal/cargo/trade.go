// Package cargo defines trades (shippable cargo jobs), their time windows,
// and the capacity-limited cargo holds vessels carry them in.
package cargo

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/flotillasim/flotilla/internal/ocean"
)

// Status tags the lifecycle of a trade.
type Status int

const (
	// StatusUnknown is the initial status of every generated trade.
	StatusUnknown Status = iota + 1
	// StatusNotRealized marks a trade that failed its realization draw and
	// never entered an auction.
	StatusNotRealized
	// StatusAccepted marks a trade awarded to a company.
	StatusAccepted
	// StatusRejected marks a trade that went through an auction without
	// receiving any bid.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusNotRealized:
		return "not-realized"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// TimeWindow is the four-point delivery window of a trade: earliest and
// latest arrival for pickup, then earliest and latest arrival for drop-off.
// A nil point means that side is unbounded.
//
// The window participates in trade identity: two trades differing only in
// window are distinct trades.
type TimeWindow struct {
	EarliestPickup  *float64
	LatestPickup    *float64
	EarliestDropoff *float64
	LatestDropoff   *float64
}

// At is a convenience constructor for bounded window points.
func At(t float64) *float64 { return &t }

// PickupStart returns the earliest pickup time, 0 if unbounded.
func (w TimeWindow) PickupStart() float64 { return lowerOrZero(w.EarliestPickup) }

// PickupEnd returns the latest pickup time, +Inf if unbounded.
func (w TimeWindow) PickupEnd() float64 { return upperOrInf(w.LatestPickup) }

// DropoffStart returns the earliest drop-off time, 0 if unbounded.
func (w TimeWindow) DropoffStart() float64 { return lowerOrZero(w.EarliestDropoff) }

// DropoffEnd returns the latest drop-off time, +Inf if unbounded.
func (w TimeWindow) DropoffEnd() float64 { return upperOrInf(w.LatestDropoff) }

func lowerOrZero(t *float64) float64 {
	if t == nil {
		return 0
	}
	return *t
}

func upperOrInf(t *float64) float64 {
	if t == nil {
		return math.Inf(1)
	}
	return *t
}

// Trade is a cargo job: move Amount units of CargoType from Origin to
// Destination within Window. Immutable once created except for Status,
// which only the engine and the shipping book mutate.
type Trade struct {
	// ID is a surrogate identifier for logging and persistence. It is NOT
	// part of trade identity; see Key.
	ID uuid.UUID

	Origin      ocean.Location
	Destination ocean.Location
	Amount      float64
	CargoType   string

	// Time is when the trade becomes available for auction.
	Time float64

	// Probability is the chance the trade realizes at its availability
	// time. 1 means it always appears.
	Probability float64

	Window TimeWindow

	Status Status
}

// NewTrade creates a trade with a fresh surrogate ID, probability 1 and
// unknown status.
func NewTrade(origin, destination ocean.Location, amount float64, cargoType string, time float64, window TimeWindow) *Trade {
	return &Trade{
		ID:          uuid.New(),
		Origin:      origin,
		Destination: destination,
		Amount:      amount,
		CargoType:   cargoType,
		Time:        time,
		Probability: 1,
		Window:      window,
		Status:      StatusUnknown,
	}
}

// Clone returns a copy of the trade sharing nothing mutable with the
// original. Used when handing trade information across the company boundary.
func (t *Trade) Clone() *Trade {
	c := *t
	c.Window = TimeWindow{
		EarliestPickup:  clonePoint(t.Window.EarliestPickup),
		LatestPickup:    clonePoint(t.Window.LatestPickup),
		EarliestDropoff: clonePoint(t.Window.EarliestDropoff),
		LatestDropoff:   clonePoint(t.Window.LatestDropoff),
	}
	return &c
}

func clonePoint(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Same reports whether two trades are the same trade by value identity.
func (t *Trade) Same(other *Trade) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Key() == other.Key()
}

func (t *Trade) String() string {
	return fmt.Sprintf("Trade[%s, %.1f: %s->%s]", t.CargoType, t.Amount, t.Origin, t.Destination)
}

// CloneTrades copies a slice of trades; see Clone.
func CloneTrades(trades []*Trade) []*Trade {
	out := make([]*Trade, len(trades))
	for i, t := range trades {
		out[i] = t.Clone()
	}
	return out
}
