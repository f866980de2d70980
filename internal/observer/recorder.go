package observer

import (
	"context"
	"log/slog"

	"github.com/flotillasim/flotilla/internal/engine"
	"github.com/flotillasim/flotilla/internal/market"
	"github.com/flotillasim/flotilla/internal/store"
)

// Recorder persists executed events, awarded contracts and deliveries to
// the store. Write failures are logged and the run continues; the store is
// an audit trail, not a dependency of the simulation.
type Recorder struct {
	store *store.Store
	runID string
	log   *slog.Logger
}

// NewRecorder creates a recorder writing under the given run ID.
func NewRecorder(st *store.Store, runID string, log *slog.Logger) *Recorder {
	return &Recorder{store: st, runID: runID, log: log}
}

func (o *Recorder) Notify(ev *engine.Event, data any) {
	ctx := context.Background()

	row := store.EventRow{
		RunID: o.runID,
		Time:  ev.Time,
		Kind:  ev.Kind.String(),
		Port:  ev.Destination.Name,
	}
	if ev.Vessel != nil {
		row.Vessel = ev.Vessel.Name()
		row.Company = ev.Vessel.Owner()
	}
	if ev.Trade != nil {
		row.TradeKey = ev.Trade.Key()
	}
	if err := o.store.WriteEvent(ctx, row); err != nil {
		o.log.Error("event not recorded", "kind", row.Kind, "time", row.Time, "error", err)
	}

	switch d := data.(type) {
	case *market.AllocationResult:
		o.recordAllocation(ctx, ev.Time, d)
	case *market.Contract:
		if d == nil {
			return
		}
		if err := o.store.MarkFulfilled(ctx, d.ID.String()); err != nil {
			o.log.Error("delivery not recorded", "contract", d.ID, "error", err)
		}
	}
}

func (o *Recorder) recordAllocation(ctx context.Context, auctionTime float64, res *market.AllocationResult) {
	for _, name := range res.Ledger.Companies() {
		for _, c := range res.Ledger.Contracts(name) {
			row := store.ContractRow{
				ID:          c.ID.String(),
				RunID:       o.runID,
				AuctionTime: auctionTime,
				Company:     name,
				TradeKey:    c.Trade.Key(),
				Payment:     c.Payment,
			}
			if err := o.store.WriteContract(ctx, row); err != nil {
				o.log.Error("contract not recorded", "contract", c.ID, "error", err)
			}
		}
	}
	for _, t := range res.Unallocated {
		if err := o.store.WriteUnallocated(ctx, o.runID, auctionTime, t.Key()); err != nil {
			o.log.Error("unallocated trade not recorded", "trade", t, "error", err)
		}
	}
}
