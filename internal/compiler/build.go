package compiler

import (
	"fmt"
	"log/slog"

	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/company"
	"github.com/flotillasim/flotilla/internal/engine"
	"github.com/flotillasim/flotilla/internal/fleet"
	"github.com/flotillasim/flotilla/internal/market"
	"github.com/flotillasim/flotilla/internal/ocean"
	"github.com/flotillasim/flotilla/internal/shipping"
)

// Build assembles a runnable engine from a validated world spec. Extra
// engine options (observers, timeouts) are appended after the spec-derived
// ones.
func Build(spec *WorldSpec, log *slog.Logger, extra ...engine.Option) (*engine.Engine, error) {
	ports := make([]ocean.Location, len(spec.Ports))
	for i, p := range spec.Ports {
		ports[i] = ocean.Location{Name: p.Name, X: p.X, Y: p.Y}
	}
	network := ocean.NewUnitNetwork(ports)

	world := engine.NewWorld(network, spec.Seed)
	hq := engine.NewHeadquarters(world)

	companies := make([]market.Company, 0, len(spec.Companies))
	for _, cs := range spec.Companies {
		c, err := buildCompany(cs, network, hq)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}

	trades := make([]*cargo.Trade, 0, len(spec.Trades))
	for _, ts := range spec.Trades {
		origin, _ := network.Port(ts.Origin)
		destination, _ := network.Port(ts.Destination)
		t := cargo.NewTrade(origin, destination, ts.Amount, ts.CargoType, ts.Time, cargo.TimeWindow{
			EarliestPickup:  ts.Window.EarliestPickup,
			LatestPickup:    ts.Window.LatestPickup,
			EarliestDropoff: ts.Window.EarliestDropoff,
			LatestDropoff:   ts.Window.LatestDropoff,
		})
		if ts.Probability != nil {
			t.Probability = *ts.Probability
		}
		trades = append(trades, t)
	}
	book := shipping.NewBook(trades, world.Rand(), log)

	opts := []engine.Option{
		engine.WithHeadquarters(hq),
		engine.WithLogger(log),
	}
	if spec.Horizon != nil {
		opts = append(opts, engine.WithHorizon(*spec.Horizon))
	}
	opts = append(opts, extra...)

	return engine.New(world, book, companies, opts...), nil
}

func buildCompany(cs CompanySpec, network ocean.Network, hq company.Headquarters) (market.Company, error) {
	vessels := make([]*fleet.Vessel, 0, len(cs.Vessels))
	for _, vs := range cs.Vessels {
		capacities := make([]cargo.Capacity, len(vs.Capacities))
		for i, hold := range vs.Capacities {
			capacities[i] = cargo.Capacity{
				CargoType:   hold.CargoType,
				Capacity:    hold.Capacity,
				LoadingRate: hold.LoadingRate,
			}
		}
		var at ocean.Location
		if vs.Port != "" {
			at, _ = network.Port(vs.Port)
		}
		vessels = append(vessels, fleet.New(vs.Name, vs.Speed, capacities, at))
	}

	switch cs.Strategy {
	case "", StrategyFirstFit:
		var opts []company.FirstFitOption
		if cs.ProfitFactor != nil {
			opts = append(opts, company.WithProfitFactor(*cs.ProfitFactor))
		}
		if cs.CostPerHour != nil {
			opts = append(opts, company.WithCostPerHour(*cs.CostPerHour))
		}
		return company.NewFirstFit(cs.Name, vessels, hq, opts...), nil
	default:
		return nil, fmt.Errorf("company %s: unknown strategy %q", cs.Name, cs.Strategy)
	}
}
