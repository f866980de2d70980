package market

import (
	"context"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/schedule"
)

// Bid is one company's offer to transport a trade for an amount.
type Bid struct {
	Amount float64
	Trade  *cargo.Trade
}

// ScheduleProposal is a company's answer to awarded contracts: new
// schedules per vessel, the trades they cover, and the company's own cost
// estimate per trade (keyed by trade identity).
type ScheduleProposal struct {
	Schedules map[*fleet.Vessel]*schedule.Schedule
	Trades    []*cargo.Trade
	Costs     map[string]float64
}

// Cost returns the proposal's cost estimate for a trade, 0 when the company
// gave none.
func (p *ScheduleProposal) Cost(t *cargo.Trade) float64 {
	return p.Costs[t.Key()]
}

// Company is the plugin boundary of the simulation. Implementations run
// untrusted strategy code; every call carries a context with a deadline and
// the caller drops the result when the deadline expires.
//
// The trade slices passed in are private copies; companies may keep or
// mutate them freely.
type Company interface {
	Name() string

	// Fleet returns the vessels the company operates. The engine reads the
	// fleet for event dispatch and sanitized snapshots.
	Fleet() []*fleet.Vessel

	// PreInform announces trades that will be auctioned at auctionTime.
	// Purely informational; no response is expected.
	PreInform(ctx context.Context, trades []*cargo.Trade, auctionTime float64) error

	// Inform opens an auction round over the trades and returns the
	// company's bids.
	Inform(ctx context.Context, trades []*cargo.Trade) ([]Bid, error)

	// Receive hands over the contracts the company won, along with the
	// sanitized outcome of the whole round. The returned proposal is the
	// company's staged schedule change; the engine commits or rejects it.
	Receive(ctx context.Context, contracts []*Contract, ledger map[string][]*Contract) (*ScheduleProposal, error)
}
