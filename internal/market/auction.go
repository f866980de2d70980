package market

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/flotillasim/flotilla/internal/cargo"
)

// DefaultTimeout bounds each plugin call when no other limit is set.
const DefaultTimeout = 60 * time.Second

// Auction runs the trade distribution rounds. A single Auction serves the
// whole simulation; it holds no per-round state.
type Auction struct {
	timeout time.Duration
	log     *slog.Logger
}

// NewAuction creates an auction with the given per-plugin-call timeout.
func NewAuction(timeout time.Duration, log *slog.Logger) *Auction {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Auction{timeout: timeout, log: log}
}

// AnnounceFuture tells every company about trades that will be auctioned at
// auctionTime. Fire-and-forget: failures and timeouts are logged and the
// round proceeds.
func (a *Auction) AnnounceFuture(ctx context.Context, trades []*cargo.Trade, auctionTime float64, companies []Company) {
	for _, c := range companies {
		batch := cargo.CloneTrades(trades)
		_, err := callPlugin(ctx, a.timeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.PreInform(ctx, batch, auctionTime)
		})
		if err != nil {
			a.log.Warn("company pre-inform failed",
				"company", c.Name(),
				"auction_time", auctionTime,
				"error", err)
		}
	}
}

// pendingBid is a received bid tagged with its bidder. Bids are kept in
// arrival order, which is company registration order; a tie at the lowest
// amount goes to the earliest received bid.
type pendingBid struct {
	company string
	amount  float64
}

// Distribute runs one second-price auction round over the trades. Every
// company is informed with its own copy of the batch and bids under the
// auction timeout; a failed or timed-out company forfeits the round. Each
// trade goes to the lowest bidder at the second-lowest bid amount, or at
// its own amount when it is the only bidder. Trades nobody bid on are
// returned unallocated.
func (a *Auction) Distribute(ctx context.Context, now float64, trades []*cargo.Trade, companies []Company) *AllocationResult {
	inBatch := make(map[string]bool, len(trades))
	for _, t := range trades {
		inBatch[t.Key()] = true
	}

	bidsPerTrade := make(map[string][]pendingBid, len(trades))
	for _, c := range companies {
		batch := cargo.CloneTrades(trades)
		bids, err := callPlugin(ctx, a.timeout, func(ctx context.Context) ([]Bid, error) {
			return c.Inform(ctx, batch)
		})
		if err != nil {
			a.log.Warn("company forfeits auction round",
				"company", c.Name(),
				"time", now,
				"error", err)
			continue
		}
		for _, b := range bids {
			if b.Trade == nil || !inBatch[b.Trade.Key()] {
				a.log.Warn("bid on trade outside the batch ignored", "company", c.Name())
				continue
			}
			if math.IsNaN(b.Amount) {
				a.log.Warn("bid with NaN amount ignored", "company", c.Name())
				continue
			}
			key := b.Trade.Key()
			bidsPerTrade[key] = append(bidsPerTrade[key], pendingBid{company: c.Name(), amount: b.Amount})
		}
	}

	ledger := NewLedger(companies)
	var unallocated []*cargo.Trade
	for _, t := range trades {
		bids := bidsPerTrade[t.Key()]
		if len(bids) == 0 {
			unallocated = append(unallocated, t)
			continue
		}
		sort.SliceStable(bids, func(i, j int) bool { return bids[i].amount < bids[j].amount })
		payment := bids[0].amount
		if len(bids) > 1 {
			payment = bids[1].amount
		}
		ledger.Append(bids[0].company, NewContract(t, payment))
	}

	awarded := len(trades) - len(unallocated)
	a.log.Info("auction round complete",
		"time", now,
		"awarded", awarded,
		"trades", len(trades))
	return &AllocationResult{Ledger: ledger, Unallocated: unallocated}
}

// Receive hands a company its won contracts and the sanitized round
// outcome, under the auction timeout. The staged proposal is returned for
// the engine to commit; nil with an error when the company failed or timed
// out.
func (a *Auction) Receive(ctx context.Context, c Company, contracts []*Contract, sanitized map[string][]*Contract) (*ScheduleProposal, error) {
	copies := make([]*Contract, len(contracts))
	for i, k := range contracts {
		copies[i] = k.Clone()
	}
	return callPlugin(ctx, a.timeout, func(ctx context.Context) (*ScheduleProposal, error) {
		return c.Receive(ctx, copies, sanitized)
	})
}

// callPlugin runs f on its own goroutine raced against the deadline. When
// the deadline wins, the abandoned result is dropped through the buffered
// channel and never observed.
func callPlugin[T any](ctx context.Context, timeout time.Duration, f func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				ch <- result{value: zero, err: fmt.Errorf("company plugin panicked: %v", r)}
			}
		}()
		v, err := f(ctx)
		ch <- result{value: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
