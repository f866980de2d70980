// Package compiler turns CUE world specs into typed simulation setups:
// ports, fleets, companies and the trade book, validated before anything
// runs.
package compiler

import (
	"fmt"
	"math"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// StrategyFirstFit is the baseline bidding strategy.
const StrategyFirstFit = "first_fit"

// WorldSpec is a fully decoded world definition.
type WorldSpec struct {
	// Seed drives every random choice of a run: trade realization and
	// vessel placement. Equal seeds give equal runs.
	Seed int64 `json:"seed"`

	// Horizon is the announcement lead time in hours. Unset means the
	// engine default.
	Horizon *float64 `json:"horizon,omitempty"`

	Ports     []PortSpec    `json:"ports"`
	Companies []CompanySpec `json:"companies"`
	Trades    []TradeSpec   `json:"trades"`
}

// PortSpec places a named port on the unit square.
type PortSpec struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CompanySpec defines one competing company and its fleet.
type CompanySpec struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy,omitempty"`

	ProfitFactor *float64 `json:"profit_factor,omitempty"`
	CostPerHour  *float64 `json:"cost_per_hour,omitempty"`

	Vessels []VesselSpec `json:"vessels"`
}

// VesselSpec defines one vessel. An empty port means the engine moors the
// vessel at a seed-chosen port before the run.
type VesselSpec struct {
	Name       string         `json:"name"`
	Speed      float64        `json:"speed"`
	Port       string         `json:"port,omitempty"`
	Capacities []CapacitySpec `json:"capacities"`
}

// CapacitySpec defines one cargo hold container.
type CapacitySpec struct {
	CargoType   string  `json:"cargo_type"`
	Capacity    float64 `json:"capacity"`
	LoadingRate float64 `json:"loading_rate"`
}

// TradeSpec defines one trade of the shipping book.
type TradeSpec struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Amount      float64 `json:"amount"`
	CargoType   string  `json:"cargo_type"`

	// Time is when the trade becomes available for auction.
	Time float64 `json:"time"`

	// Probability is the chance the trade realizes, defaulting to certain.
	Probability *float64 `json:"probability,omitempty"`

	Window WindowSpec `json:"window,omitempty"`
}

// WindowSpec bounds a trade's pickup and drop-off times. Unset bounds are
// open.
type WindowSpec struct {
	EarliestPickup  *float64 `json:"earliest_pickup,omitempty"`
	LatestPickup    *float64 `json:"latest_pickup,omitempty"`
	EarliestDropoff *float64 `json:"earliest_dropoff,omitempty"`
	LatestDropoff   *float64 `json:"latest_dropoff,omitempty"`
}

// CompileWorld decodes and validates a CUE value holding a world struct.
func CompileWorld(v cue.Value) (*WorldSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	var spec WorldSpec
	if err := v.Decode(&spec); err != nil {
		return nil, formatCUEError(err)
	}
	if err := validateWorld(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadWorldDir loads every CUE file in a directory, builds the instance
// and compiles its top-level "world" struct.
func LoadWorldDir(dir string) (*WorldSpec, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "world", Message: fmt.Sprintf("no CUE instances in %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	worldVal := value.LookupPath(cue.ParsePath("world"))
	if !worldVal.Exists() {
		return nil, &CompileError{Field: "world", Message: "no top-level world struct found"}
	}
	return CompileWorld(worldVal)
}

func validateWorld(spec *WorldSpec) error {
	if len(spec.Ports) == 0 {
		return &CompileError{Field: "ports", Message: "at least one port is required"}
	}
	portNames := make(map[string]bool, len(spec.Ports))
	for i, p := range spec.Ports {
		field := fmt.Sprintf("ports[%d]", i)
		if p.Name == "" {
			return &CompileError{Field: field + ".name", Message: "port name is required"}
		}
		if portNames[p.Name] {
			return &CompileError{Field: field + ".name", Message: fmt.Sprintf("duplicate port %q", p.Name)}
		}
		portNames[p.Name] = true
		if !finite(p.X) || !finite(p.Y) {
			return &CompileError{Field: field, Message: "port coordinates must be finite"}
		}
	}

	if len(spec.Companies) == 0 {
		return &CompileError{Field: "companies", Message: "at least one company is required"}
	}
	companyNames := make(map[string]bool, len(spec.Companies))
	vesselNames := make(map[string]bool)
	for i, c := range spec.Companies {
		field := fmt.Sprintf("companies[%d]", i)
		if c.Name == "" {
			return &CompileError{Field: field + ".name", Message: "company name is required"}
		}
		if companyNames[c.Name] {
			return &CompileError{Field: field + ".name", Message: fmt.Sprintf("duplicate company %q", c.Name)}
		}
		companyNames[c.Name] = true

		switch c.Strategy {
		case "", StrategyFirstFit:
		default:
			return &CompileError{Field: field + ".strategy", Message: fmt.Sprintf("unknown strategy %q", c.Strategy)}
		}
		if c.ProfitFactor != nil && *c.ProfitFactor <= 0 {
			return &CompileError{Field: field + ".profit_factor", Message: "profit factor must be positive"}
		}
		if c.CostPerHour != nil && *c.CostPerHour <= 0 {
			return &CompileError{Field: field + ".cost_per_hour", Message: "cost per hour must be positive"}
		}

		if len(c.Vessels) == 0 {
			return &CompileError{Field: field + ".vessels", Message: "at least one vessel is required"}
		}
		for j, v := range c.Vessels {
			vfield := fmt.Sprintf("%s.vessels[%d]", field, j)
			if v.Name == "" {
				return &CompileError{Field: vfield + ".name", Message: "vessel name is required"}
			}
			if vesselNames[v.Name] {
				return &CompileError{Field: vfield + ".name", Message: fmt.Sprintf("duplicate vessel %q", v.Name)}
			}
			vesselNames[v.Name] = true
			if !(v.Speed > 0) || !finite(v.Speed) {
				return &CompileError{Field: vfield + ".speed", Message: "speed must be positive and finite"}
			}
			if v.Port != "" && !portNames[v.Port] {
				return &CompileError{Field: vfield + ".port", Message: fmt.Sprintf("unknown port %q", v.Port)}
			}
			if len(v.Capacities) == 0 {
				return &CompileError{Field: vfield + ".capacities", Message: "at least one hold capacity is required"}
			}
			for k, hold := range v.Capacities {
				cfield := fmt.Sprintf("%s.capacities[%d]", vfield, k)
				if hold.CargoType == "" {
					return &CompileError{Field: cfield + ".cargo_type", Message: "cargo type is required"}
				}
				if !(hold.Capacity > 0) {
					return &CompileError{Field: cfield + ".capacity", Message: "capacity must be positive"}
				}
				if !(hold.LoadingRate > 0) {
					return &CompileError{Field: cfield + ".loading_rate", Message: "loading rate must be positive"}
				}
			}
		}
	}

	for i, t := range spec.Trades {
		field := fmt.Sprintf("trades[%d]", i)
		if !portNames[t.Origin] {
			return &CompileError{Field: field + ".origin", Message: fmt.Sprintf("unknown port %q", t.Origin)}
		}
		if !portNames[t.Destination] {
			return &CompileError{Field: field + ".destination", Message: fmt.Sprintf("unknown port %q", t.Destination)}
		}
		if !(t.Amount > 0) || !finite(t.Amount) {
			return &CompileError{Field: field + ".amount", Message: "amount must be positive and finite"}
		}
		if t.CargoType == "" {
			return &CompileError{Field: field + ".cargo_type", Message: "cargo type is required"}
		}
		if t.Time < 0 || !finite(t.Time) {
			return &CompileError{Field: field + ".time", Message: "availability time must be non-negative and finite"}
		}
		if t.Probability != nil && (*t.Probability < 0 || *t.Probability > 1) {
			return &CompileError{Field: field + ".probability", Message: "probability must be within [0, 1]"}
		}
		if err := validateWindow(field+".window", t.Window); err != nil {
			return err
		}
	}

	if spec.Horizon != nil && (*spec.Horizon < 0 || !finite(*spec.Horizon)) {
		return &CompileError{Field: "horizon", Message: "horizon must be non-negative and finite"}
	}
	return nil
}

func validateWindow(field string, w WindowSpec) error {
	if bothSet(w.EarliestPickup, w.LatestPickup) && *w.EarliestPickup > *w.LatestPickup {
		return &CompileError{Field: field, Message: "earliest pickup is after latest pickup"}
	}
	if bothSet(w.EarliestDropoff, w.LatestDropoff) && *w.EarliestDropoff > *w.LatestDropoff {
		return &CompileError{Field: field, Message: "earliest drop-off is after latest drop-off"}
	}
	for _, bound := range []*float64{w.EarliestPickup, w.LatestPickup, w.EarliestDropoff, w.LatestDropoff} {
		if bound != nil && math.IsNaN(*bound) {
			return &CompileError{Field: field, Message: "window bounds must not be NaN"}
		}
	}
	return nil
}

func bothSet(a, b *float64) bool { return a != nil && b != nil }

func finite(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) }
