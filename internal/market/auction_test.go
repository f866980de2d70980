package market

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/ocean"
)

var (
	portA = ocean.Location{Name: "A", X: 0, Y: 0}
	portB = ocean.Location{Name: "B", X: 0.5, Y: 0}
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubCompany bids through a configurable inform function.
type stubCompany struct {
	name       string
	inform     func(trades []*cargo.Trade) ([]Bid, error)
	preInforms []float64
}

func (s *stubCompany) Name() string           { return s.name }
func (s *stubCompany) Fleet() []*fleet.Vessel { return nil }

func (s *stubCompany) PreInform(ctx context.Context, trades []*cargo.Trade, auctionTime float64) error {
	s.preInforms = append(s.preInforms, auctionTime)
	return nil
}

func (s *stubCompany) Inform(ctx context.Context, trades []*cargo.Trade) ([]Bid, error) {
	if s.inform == nil {
		return nil, nil
	}
	return s.inform(trades)
}

func (s *stubCompany) Receive(ctx context.Context, contracts []*Contract, ledger map[string][]*Contract) (*ScheduleProposal, error) {
	return nil, nil
}

func flatBidder(name string, amount float64) *stubCompany {
	return &stubCompany{
		name: name,
		inform: func(trades []*cargo.Trade) ([]Bid, error) {
			bids := make([]Bid, len(trades))
			for i, t := range trades {
				bids[i] = Bid{Amount: amount, Trade: t}
			}
			return bids, nil
		},
	}
}

func testTrade() *cargo.Trade {
	return cargo.NewTrade(portA, portB, 100, "oil", 0, cargo.TimeWindow{})
}

func TestAuction_Distribute_SecondPrice(t *testing.T) {
	a := NewAuction(time.Second, discard())
	trade := testTrade()
	low := flatBidder("low", 10)
	high := flatBidder("high", 25)

	res := a.Distribute(context.Background(), 0, []*cargo.Trade{trade}, []Company{high, low})

	require.Empty(t, res.Unallocated)
	require.Len(t, res.Ledger.Contracts("low"), 1)
	assert.Empty(t, res.Ledger.Contracts("high"))

	won := res.Ledger.Contracts("low")[0]
	assert.Same(t, trade, won.Trade)
	assert.InDelta(t, 25, won.Payment, 1e-9, "winner pays the second-lowest bid")
}

func TestAuction_Distribute_SoleBidderPaysOwnBid(t *testing.T) {
	a := NewAuction(time.Second, discard())
	trade := testTrade()

	res := a.Distribute(context.Background(), 0, []*cargo.Trade{trade}, []Company{flatBidder("solo", 42)})

	require.Len(t, res.Ledger.Contracts("solo"), 1)
	assert.InDelta(t, 42, res.Ledger.Contracts("solo")[0].Payment, 1e-9)
}

func TestAuction_Distribute_TieGoesToEarliestBid(t *testing.T) {
	a := NewAuction(time.Second, discard())
	trade := testTrade()
	first := flatBidder("first", 10)
	second := flatBidder("second", 10)

	res := a.Distribute(context.Background(), 0, []*cargo.Trade{trade}, []Company{first, second})

	require.Len(t, res.Ledger.Contracts("first"), 1)
	assert.Empty(t, res.Ledger.Contracts("second"))
	assert.InDelta(t, 10, res.Ledger.Contracts("first")[0].Payment, 1e-9)
}

func TestAuction_Distribute_NoBidsLeaveTradeUnallocated(t *testing.T) {
	a := NewAuction(time.Second, discard())
	trade := testTrade()
	silent := &stubCompany{name: "silent"}

	res := a.Distribute(context.Background(), 0, []*cargo.Trade{trade}, []Company{silent})

	assert.Equal(t, []*cargo.Trade{trade}, res.Unallocated)
	assert.Empty(t, res.Ledger.Contracts("silent"))
}

func TestAuction_Distribute_SlowCompanyForfeitsRound(t *testing.T) {
	a := NewAuction(20*time.Millisecond, discard())
	trade := testTrade()
	slow := &stubCompany{
		name: "slow",
		inform: func(trades []*cargo.Trade) ([]Bid, error) {
			time.Sleep(500 * time.Millisecond)
			return []Bid{{Amount: 1, Trade: trades[0]}}, nil
		},
	}
	steady := flatBidder("steady", 30)

	res := a.Distribute(context.Background(), 0, []*cargo.Trade{trade}, []Company{slow, steady})

	require.Len(t, res.Ledger.Contracts("steady"), 1)
	assert.Empty(t, res.Ledger.Contracts("slow"), "timed-out company must not win")
}

func TestAuction_Distribute_FailuresForfeitRoundOnly(t *testing.T) {
	a := NewAuction(time.Second, discard())
	trade := testTrade()
	failing := &stubCompany{
		name:   "failing",
		inform: func([]*cargo.Trade) ([]Bid, error) { return nil, errors.New("strategy exploded") },
	}
	panicking := &stubCompany{
		name:   "panicking",
		inform: func([]*cargo.Trade) ([]Bid, error) { panic("boom") },
	}
	steady := flatBidder("steady", 5)

	res := a.Distribute(context.Background(), 0, []*cargo.Trade{trade}, []Company{failing, panicking, steady})

	require.Len(t, res.Ledger.Contracts("steady"), 1)
	assert.Empty(t, res.Unallocated)
}

func TestAuction_Distribute_ForeignBidIgnored(t *testing.T) {
	a := NewAuction(time.Second, discard())
	trade := testTrade()
	other := cargo.NewTrade(portB, portA, 50, "oil", 0, cargo.TimeWindow{})
	rogue := &stubCompany{
		name:   "rogue",
		inform: func([]*cargo.Trade) ([]Bid, error) { return []Bid{{Amount: 1, Trade: other}}, nil },
	}

	res := a.Distribute(context.Background(), 0, []*cargo.Trade{trade}, []Company{rogue})

	assert.Equal(t, []*cargo.Trade{trade}, res.Unallocated)
}

func TestAuction_Distribute_CompaniesGetPrivateCopies(t *testing.T) {
	a := NewAuction(time.Second, discard())
	trade := testTrade()
	vandal := &stubCompany{
		name: "vandal",
		inform: func(trades []*cargo.Trade) ([]Bid, error) {
			trades[0].Amount = -1
			trades[0].Status = cargo.StatusRejected
			return nil, nil
		},
	}

	a.Distribute(context.Background(), 0, []*cargo.Trade{trade}, []Company{vandal})

	assert.InDelta(t, 100, trade.Amount, 1e-9, "company mutations must not reach the book")
	assert.Equal(t, cargo.StatusUnknown, trade.Status)
}

func TestAuction_AnnounceFuture(t *testing.T) {
	a := NewAuction(time.Second, discard())
	c := &stubCompany{name: "listener"}

	a.AnnounceFuture(context.Background(), []*cargo.Trade{testTrade()}, 720, []Company{c})

	assert.Equal(t, []float64{720}, c.preInforms)
}

func TestLedger_Sanitized(t *testing.T) {
	c := flatBidder("c", 1)
	l := NewLedger([]Company{c})
	trade := testTrade()
	l.Append("c", NewContract(trade, 12))

	sanitized := l.Sanitized()
	require.Len(t, sanitized["c"], 1)
	assert.NotSame(t, trade, sanitized["c"][0].Trade, "sanitized ledger must not leak live trades")
	assert.Equal(t, trade.Key(), sanitized["c"][0].Trade.Key())
}
