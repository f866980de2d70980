package observer

import (
	"encoding/json"
	"io"

	"github.com/flotillasim/flotilla/internal/engine"
	"github.com/flotillasim/flotilla/internal/market"
)

// VesselMetrics aggregates how one vessel spent its time.
type VesselMetrics struct {
	TravelHours   float64 `json:"travel_hours"`
	IdleHours     float64 `json:"idle_hours"`
	TransferHours float64 `json:"transfer_hours"`
}

// CompanyMetrics aggregates one company's market outcome. Revenue is the
// sum of awarded contract payments; Deliveries counts fulfilled contracts.
// Unfulfilled counts contracts the company won but had not delivered by the
// end of the run, the basis for penalty accounting.
type CompanyMetrics struct {
	Revenue      float64 `json:"revenue"`
	ContractsWon int     `json:"contracts_won"`
	Deliveries   int     `json:"deliveries"`
	Unfulfilled  int     `json:"unfulfilled"`
}

// Report is a finished run's metrics snapshot. Map keys serialize sorted,
// so two identical runs export identical JSON.
type Report struct {
	Vessels           map[string]VesselMetrics  `json:"vessels"`
	Companies         map[string]CompanyMetrics `json:"companies"`
	UnallocatedTrades int                       `json:"unallocated_trades"`
}

// Metrics collects per-vessel time usage and per-company market outcomes
// over a run.
type Metrics struct {
	vessels     map[string]*VesselMetrics
	companies   map[string]*CompanyMetrics
	unallocated int
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		vessels:   make(map[string]*VesselMetrics),
		companies: make(map[string]*CompanyMetrics),
	}
}

func (o *Metrics) Notify(ev *engine.Event, data any) {
	switch ev.Kind {
	case engine.EventTravel:
		o.vessel(ev.Vessel.Name()).TravelHours += ev.Duration()
	case engine.EventIdle:
		o.vessel(ev.Vessel.Name()).IdleHours += ev.Duration()
	case engine.EventTransfer:
		o.vessel(ev.Vessel.Name()).TransferHours += ev.Duration()
		if contract, ok := data.(*market.Contract); ok && contract != nil {
			o.company(ev.Vessel.Owner()).Deliveries++
		}
	case engine.EventCargoAuction:
		res, ok := data.(*market.AllocationResult)
		if !ok {
			return
		}
		for _, name := range res.Ledger.Companies() {
			for _, contract := range res.Ledger.Contracts(name) {
				c := o.company(name)
				c.Revenue += contract.Payment
				c.ContractsWon++
			}
		}
		o.unallocated += len(res.Unallocated)
	}
}

func (o *Metrics) vessel(name string) *VesselMetrics {
	m, ok := o.vessels[name]
	if !ok {
		m = &VesselMetrics{}
		o.vessels[name] = m
	}
	return m
}

func (o *Metrics) company(name string) *CompanyMetrics {
	m, ok := o.companies[name]
	if !ok {
		m = &CompanyMetrics{}
		o.companies[name] = m
	}
	return m
}

// Report snapshots the collected metrics.
func (o *Metrics) Report() Report {
	r := Report{
		Vessels:           make(map[string]VesselMetrics, len(o.vessels)),
		Companies:         make(map[string]CompanyMetrics, len(o.companies)),
		UnallocatedTrades: o.unallocated,
	}
	for name, m := range o.vessels {
		r.Vessels[name] = *m
	}
	for name, m := range o.companies {
		c := *m
		c.Unfulfilled = c.ContractsWon - c.Deliveries
		r.Companies[name] = c
	}
	return r
}

// Export writes the report as indented JSON.
func (o *Metrics) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o.Report())
}
