// Package harness runs scenario-driven simulation tests: it builds a world
// from a scenario's CUE spec, runs it to queue exhaustion, captures the
// executed event trace and evaluates the scenario's assertions. Golden
// trace comparison catches any drift in event ordering or timing.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/flotillasim/flotilla/internal/compiler"
	"github.com/flotillasim/flotilla/internal/engine"
	"github.com/flotillasim/flotilla/internal/market"
	"github.com/flotillasim/flotilla/internal/scenario"
)

// TraceEvent is one executed event of a run, flattened for comparison.
type TraceEvent struct {
	Seq      int      `json:"seq"`
	Time     float64  `json:"time"`
	Kind     string   `json:"kind"`
	Vessel   string   `json:"vessel,omitempty"`
	Company  string   `json:"company,omitempty"`
	TradeKey string   `json:"trade_key,omitempty"`
	Port     string   `json:"port,omitempty"`
	Payment  *float64 `json:"payment,omitempty"`
}

// Result is a finished scenario run.
type Result struct {
	Scenario *scenario.Scenario
	Trace    []TraceEvent
	Engine   *engine.Engine

	// Failures lists failed assertions. Empty means the scenario passed.
	Failures []string
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

// traceRecorder flattens executed events into the trace.
type traceRecorder struct {
	trace []TraceEvent
}

func (r *traceRecorder) Notify(ev *engine.Event, data any) {
	te := TraceEvent{
		Seq:  len(r.trace) + 1,
		Time: ev.Time,
		Kind: ev.Kind.String(),
		Port: ev.Destination.Name,
	}
	if ev.Vessel != nil {
		te.Vessel = ev.Vessel.Name()
		te.Company = ev.Vessel.Owner()
	}
	if ev.Trade != nil {
		te.TradeKey = ev.Trade.Key()
	}
	if contract, ok := data.(*market.Contract); ok && contract != nil {
		payment := contract.Payment
		te.Payment = &payment
	}
	r.trace = append(r.trace, te)
}

// Run builds the scenario's world, runs it and evaluates the assertions.
// Assertion failures land in the result; only setup errors are returned.
func Run(sc *scenario.Scenario) (*Result, error) {
	spec, err := compiler.LoadWorldDir(sc.World)
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}

	recorder := &traceRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := compiler.Build(spec, log, engine.WithObserver(recorder))
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}

	if err := eng.Run(context.Background()); err != nil {
		return nil, fmt.Errorf("run scenario %s: %w", sc.Name, err)
	}

	result := &Result{
		Scenario: sc,
		Trace:    recorder.trace,
		Engine:   eng,
	}
	result.Failures = evaluate(sc, result)
	return result, nil
}
