// Package observer provides engine observers: logging, delivery tracking,
// metrics collection and durable event recording. Observers are notified
// from the main loop and never mutate simulation state.
package observer

import (
	"log/slog"

	"github.com/flotillasim/flotilla/internal/engine"
	"github.com/flotillasim/flotilla/internal/market"
)

// Log writes one structured log line per executed event.
type Log struct {
	log *slog.Logger
}

// NewLog creates a logging observer.
func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (o *Log) Notify(ev *engine.Event, data any) {
	attrs := []any{"kind", ev.Kind.String(), "time", ev.Time}
	if ev.Vessel != nil {
		attrs = append(attrs, "vessel", ev.Vessel.Name())
	}
	if ev.Trade != nil {
		attrs = append(attrs, "trade", ev.Trade.String())
	}
	switch d := data.(type) {
	case *market.AllocationResult:
		allocated := 0
		for _, name := range d.Ledger.Companies() {
			allocated += len(d.Ledger.Contracts(name))
		}
		attrs = append(attrs, "allocated", allocated, "unallocated", len(d.Unallocated))
	case *market.Contract:
		attrs = append(attrs, "payment", d.Payment)
	}
	o.log.Info("event", attrs...)
}

// Delivery records one fulfilled cargo drop-off.
type Delivery struct {
	Time     float64
	Vessel   string
	Company  string
	TradeKey string
	Payment  float64
}

// Deliveries collects every contract fulfilled during a run, in delivery
// order.
type Deliveries struct {
	deliveries []Delivery
}

// NewDeliveries creates an empty delivery tracker.
func NewDeliveries() *Deliveries {
	return &Deliveries{}
}

func (o *Deliveries) Notify(ev *engine.Event, data any) {
	contract, ok := data.(*market.Contract)
	if !ok || ev.Kind != engine.EventTransfer || ev.Pickup {
		return
	}
	o.deliveries = append(o.deliveries, Delivery{
		Time:     ev.Time,
		Vessel:   ev.Vessel.Name(),
		Company:  ev.Vessel.Owner(),
		TradeKey: contract.Trade.Key(),
		Payment:  contract.Payment,
	})
}

// All returns the deliveries recorded so far.
func (o *Deliveries) All() []Delivery {
	return append([]Delivery(nil), o.deliveries...)
}
