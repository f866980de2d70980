package observer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/engine"
	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/market"
	"github.com/flotillasim/flotilla/internal/ocean"
	"github.com/flotillasim/flotilla/internal/store"
)

var (
	obsPortA = ocean.Location{Name: "A", X: 0, Y: 0}
	obsPortB = ocean.Location{Name: "B", X: 0.3, Y: 0}
)

func obsLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func obsVessel(owner string) *fleet.Vessel {
	v := fleet.New("mx-1", 0.1, []cargo.Capacity{{CargoType: "oil", LoadingRate: 100, Capacity: 400}}, obsPortA)
	v.SetOwner(owner)
	return v
}

func obsTrade() *cargo.Trade {
	return cargo.NewTrade(obsPortA, obsPortB, 100, "oil", 0, cargo.TimeWindow{})
}

// poppedEvent routes an event through a queue so its start time is stamped
// the way the engine stamps it.
func poppedEvent(t *testing.T, clock *engine.Clock, ev *engine.Event) *engine.Event {
	t.Helper()
	q := engine.NewEventQueue(clock)
	require.NoError(t, q.Push(ev))
	out, ok := q.Pop()
	require.True(t, ok)
	return out
}

func TestDeliveries_RecordsFulfilledDropoffs(t *testing.T) {
	v := obsVessel("Northwind")
	trade := obsTrade()
	contract := market.NewContract(trade, 8.25)

	o := NewDeliveries()
	o.Notify(&engine.Event{Kind: engine.EventTransfer, Time: 5, Vessel: v, Trade: trade}, contract)

	deliveries := o.All()
	require.Len(t, deliveries, 1)
	assert.Equal(t, Delivery{
		Time:     5,
		Vessel:   "mx-1",
		Company:  "Northwind",
		TradeKey: trade.Key(),
		Payment:  8.25,
	}, deliveries[0])
}

func TestDeliveries_IgnoresPickupsAndOtherEvents(t *testing.T) {
	v := obsVessel("Northwind")
	trade := obsTrade()
	contract := market.NewContract(trade, 8.25)

	o := NewDeliveries()
	o.Notify(&engine.Event{Kind: engine.EventTransfer, Time: 1, Vessel: v, Trade: trade, Pickup: true}, nil)
	o.Notify(&engine.Event{Kind: engine.EventArrival, Time: 4, Vessel: v, Trade: trade}, nil)
	o.Notify(&engine.Event{Kind: engine.EventTransfer, Time: 5, Vessel: v, Trade: trade}, contract)

	assert.Len(t, o.All(), 1)
}

func TestMetrics_AggregatesVesselHours(t *testing.T) {
	v := obsVessel("Northwind")
	clock := engine.NewClock()

	o := NewMetrics()
	o.Notify(poppedEvent(t, clock, &engine.Event{Kind: engine.EventTravel, Time: 3, Vessel: v}), nil)
	o.Notify(poppedEvent(t, clock, &engine.Event{Kind: engine.EventIdle, Time: 5, Vessel: v}), nil)
	o.Notify(poppedEvent(t, clock, &engine.Event{Kind: engine.EventTransfer, Time: 6, Vessel: v, Trade: obsTrade()}), nil)

	report := o.Report()
	require.Contains(t, report.Vessels, "mx-1")
	assert.Equal(t, 3.0, report.Vessels["mx-1"].TravelHours)
	assert.Equal(t, 2.0, report.Vessels["mx-1"].IdleHours)
	assert.Equal(t, 1.0, report.Vessels["mx-1"].TransferHours)
}

func TestMetrics_AggregatesMarketOutcome(t *testing.T) {
	v := obsVessel("Northwind")
	won := obsTrade()
	lost := obsTrade()
	contract := market.NewContract(won, 8.25)

	ledger := market.NewLedger(nil)
	ledger.Append("Northwind", contract)
	res := &market.AllocationResult{Ledger: ledger, Unallocated: []*cargo.Trade{lost}}

	o := NewMetrics()
	o.Notify(&engine.Event{Kind: engine.EventCargoAuction, Time: 0}, res)
	o.Notify(&engine.Event{Kind: engine.EventTransfer, Time: 5, Vessel: v, Trade: won}, contract)

	report := o.Report()
	require.Contains(t, report.Companies, "Northwind")
	assert.Equal(t, 8.25, report.Companies["Northwind"].Revenue)
	assert.Equal(t, 1, report.Companies["Northwind"].ContractsWon)
	assert.Equal(t, 1, report.Companies["Northwind"].Deliveries)
	assert.Equal(t, 0, report.Companies["Northwind"].Unfulfilled)
	assert.Equal(t, 1, report.UnallocatedTrades)
}

func TestMetrics_ExportWritesJSON(t *testing.T) {
	o := NewMetrics()
	ledger := market.NewLedger(nil)
	ledger.Append("Northwind", market.NewContract(obsTrade(), 10))
	o.Notify(&engine.Event{Kind: engine.EventCargoAuction, Time: 0}, &market.AllocationResult{Ledger: ledger})

	var buf bytes.Buffer
	require.NoError(t, o.Export(&buf))
	assert.Contains(t, buf.String(), `"Northwind"`)
	assert.Contains(t, buf.String(), `"revenue": 10`)
}

func TestRecorder_PersistsEventsAndContracts(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	defer st.Close()

	v := obsVessel("Northwind")
	trade := obsTrade()
	contract := market.NewContract(trade, 8.25)
	ledger := market.NewLedger(nil)
	ledger.Append("Northwind", contract)

	o := NewRecorder(st, "r1", obsLogger())
	o.Notify(&engine.Event{Kind: engine.EventCargoAuction, Time: 0},
		&market.AllocationResult{Ledger: ledger, Unallocated: []*cargo.Trade{obsTrade()}})
	o.Notify(&engine.Event{Kind: engine.EventTransfer, Time: 5, Vessel: v, Trade: trade, Destination: obsPortB}, contract)

	ctx := context.Background()
	events, err := st.Events(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "cargo_auction", events[0].Kind)
	assert.Equal(t, "cargo_transfer", events[1].Kind)
	assert.Equal(t, "mx-1", events[1].Vessel)
	assert.Equal(t, "B", events[1].Port)

	contracts, err := st.Contracts(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, trade.Key(), contracts[0].TradeKey)
	assert.True(t, contracts[0].Fulfilled)

	unallocated, err := st.Unallocated(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, unallocated, 1)
}
