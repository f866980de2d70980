// Package shipping manages the trade book: which trades exist, when they
// become available, and which of them actually realize.
package shipping

import (
	"log/slog"
	"math/rand"
	"sort"

	"github.com/flotillasim/flotilla/internal/cargo"
)

// Book holds all known trades keyed by availability time. Realization is
// sampled once per time step with the world rng and memoized, so repeated
// queries for the same time see the same outcome.
type Book struct {
	all      map[float64][]*cargo.Trade
	occurred map[float64][]*cargo.Trade
	rng      *rand.Rand
	log      *slog.Logger
}

// NewBook creates a trade book over the given trades. The rng drives
// realization sampling; pass a seeded source for reproducible runs.
func NewBook(trades []*cargo.Trade, rng *rand.Rand, log *slog.Logger) *Book {
	b := &Book{
		all:      make(map[float64][]*cargo.Trade),
		occurred: make(map[float64][]*cargo.Trade),
		rng:      rng,
		log:      log,
	}
	b.Add(trades)
	return b
}

// Add registers further trades with the book.
func (b *Book) Add(trades []*cargo.Trade) {
	for _, t := range trades {
		b.all[t.Time] = append(b.all[t.Time], t)
	}
}

// Times returns all availability times in ascending order.
func (b *Book) Times() []float64 {
	times := make([]float64, 0, len(b.all))
	for t := range b.all {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

// TradesAt returns the trades that realize at the given time. The first
// call for a time samples each trade's probability; trades that miss are
// marked not realized. Later calls return the memoized outcome.
func (b *Book) TradesAt(time float64) []*cargo.Trade {
	if occurred, ok := b.occurred[time]; ok {
		return occurred
	}
	available, ok := b.all[time]
	if !ok {
		return nil
	}
	occurred := make([]*cargo.Trade, 0, len(available))
	for _, t := range available {
		if t.Probability >= 1 || b.rng.Float64() < t.Probability {
			occurred = append(occurred, t)
		} else {
			t.Status = cargo.StatusNotRealized
		}
	}
	b.log.Info("trades realized",
		"time", time,
		"realized", len(occurred),
		"available", len(available))
	b.occurred[time] = occurred
	return occurred
}

// All returns every trade the book knows, in availability-time order.
func (b *Book) All() []*cargo.Trade {
	var out []*cargo.Trade
	for _, t := range b.Times() {
		out = append(out, b.all[t]...)
	}
	return out
}
