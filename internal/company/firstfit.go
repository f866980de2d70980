package company

import (
	"context"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/market"
	"github.com/flotillasim/flotilla/internal/schedule"
)

// FirstFit is the baseline strategy: each trade goes onto the first vessel
// whose schedule accepts it appended at the end, and bids are time cost
// times a profit factor. The proposal from the bidding round is reused at
// contract time when the awarded trades match it.
type FirstFit struct {
	name  string
	fleet []*fleet.Vessel
	hq    Headquarters

	profitFactor float64
	costPerHour  float64

	lastProposal *market.ScheduleProposal
}

// FirstFitOption configures the baseline company.
type FirstFitOption func(*FirstFit)

// WithProfitFactor sets the factor applied to cost to form bids.
func WithProfitFactor(f float64) FirstFitOption {
	return func(c *FirstFit) { c.profitFactor = f }
}

// WithCostPerHour sets the company's internal cost of one vessel hour.
func WithCostPerHour(cost float64) FirstFitOption {
	return func(c *FirstFit) { c.costPerHour = cost }
}

// NewFirstFit creates the baseline company operating the given vessels.
func NewFirstFit(name string, vessels []*fleet.Vessel, hq Headquarters, opts ...FirstFitOption) *FirstFit {
	c := &FirstFit{
		name:         name,
		fleet:        vessels,
		hq:           hq,
		profitFactor: 1.65,
		costPerHour:  1,
	}
	for _, v := range vessels {
		v.SetOwner(name)
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *FirstFit) Name() string           { return c.name }
func (c *FirstFit) Fleet() []*fleet.Vessel { return c.fleet }

// PreInform is informational only; the baseline does not plan ahead.
func (c *FirstFit) PreInform(ctx context.Context, trades []*cargo.Trade, auctionTime float64) error {
	return nil
}

// Inform bids on every trade the fleet can fit, at cost times the profit
// factor. The proposal backing the bids is kept for Receive.
func (c *FirstFit) Inform(ctx context.Context, trades []*cargo.Trade) ([]market.Bid, error) {
	proposal := c.propose(trades)
	c.lastProposal = proposal

	bids := make([]market.Bid, 0, len(proposal.Trades))
	for _, t := range proposal.Trades {
		bids = append(bids, market.Bid{Amount: proposal.Cost(t) * c.profitFactor, Trade: t})
	}
	return bids, nil
}

// Receive stages schedules for the awarded contracts. When the awards match
// the bidding round's proposal it is reused as is; partial awards trigger a
// fresh first-fit pass over just the won trades.
func (c *FirstFit) Receive(ctx context.Context, contracts []*market.Contract, ledger map[string][]*market.Contract) (*market.ScheduleProposal, error) {
	trades := make([]*cargo.Trade, len(contracts))
	for i, k := range contracts {
		trades[i] = k.Trade
	}

	proposal := c.lastProposal
	c.lastProposal = nil
	if proposal == nil || !sameTrades(trades, proposal.Trades) {
		proposal = c.propose(trades)
	}
	return proposal, nil
}

func sameTrades(a, b []*cargo.Trade) bool {
	if len(a) != len(b) {
		return false
	}
	keys := make(map[string]int, len(a))
	for _, t := range a {
		keys[t.Key()]++
	}
	for _, t := range b {
		keys[t.Key()]--
		if keys[t.Key()] < 0 {
			return false
		}
	}
	return true
}

// propose assigns each trade to the first vessel whose extended schedule
// verifies, building on earlier assignments from the same pass.
func (c *FirstFit) propose(trades []*cargo.Trade) *market.ScheduleProposal {
	schedules := make(map[*fleet.Vessel]*schedule.Schedule)
	costs := make(map[string]float64)
	var scheduled []*cargo.Trade

	for _, t := range trades {
		for _, v := range c.fleet {
			base, ok := schedules[v]
			if !ok {
				base = v.Schedule()
			}
			trial := base.Copy()
			if err := trial.Insert(t); err != nil {
				continue
			}
			if !trial.Verify() {
				continue
			}
			schedules[v] = trial
			costs[t.Key()] = c.tradeCost(v, t)
			scheduled = append(scheduled, t)
			break
		}
	}
	return &market.ScheduleProposal{Schedules: schedules, Trades: scheduled, Costs: costs}
}

// tradeCost is the vessel time a trade consumes: loading, the laden leg,
// and unloading, priced per hour. Positioning legs are not charged.
func (c *FirstFit) tradeCost(v *fleet.Vessel, t *cargo.Trade) float64 {
	loading := v.LoadingTime(t.CargoType, t.Amount)
	travel := v.TravelTime(c.hq.Distance(t.Origin, t.Destination))
	return (2*loading + travel) * c.costPerHour
}
