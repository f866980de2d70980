package harness

import (
	"fmt"

	"github.com/flotillasim/flotilla/internal/ocean"
	"github.com/flotillasim/flotilla/internal/scenario"
)

// evaluate checks every scenario assertion against the finished run and
// returns the failures.
func evaluate(sc *scenario.Scenario, result *Result) []string {
	var failures []string
	for i, a := range sc.Assertions {
		if msg := evaluateOne(&a, result); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

func evaluateOne(a *scenario.Assertion, result *Result) string {
	switch a.Type {
	case scenario.AssertContracts:
		got := len(result.Engine.Authority().Contracts(a.Company))
		if got != a.Count {
			return fmt.Sprintf("%s holds %d contracts, expected %d", a.Company, got, a.Count)
		}
	case scenario.AssertDeliveries:
		got := 0
		for _, c := range result.Engine.Authority().Contracts(a.Company) {
			if c.Fulfilled {
				got++
			}
		}
		if got != a.Count {
			return fmt.Sprintf("%s fulfilled %d contracts, expected %d", a.Company, got, a.Count)
		}
	case scenario.AssertVesselAt:
		for _, c := range result.Engine.Companies() {
			for _, v := range c.Fleet() {
				if v.Name() != a.Vessel {
					continue
				}
				moored, ok := v.Position().(ocean.Moored)
				if !ok {
					return fmt.Sprintf("%s is not moored", a.Vessel)
				}
				if moored.Location.Name != a.Port {
					return fmt.Sprintf("%s is moored at %s, expected %s", a.Vessel, moored.Location.Name, a.Port)
				}
				return ""
			}
		}
		return fmt.Sprintf("vessel %s not found", a.Vessel)
	case scenario.AssertEventCount:
		got := 0
		for _, te := range result.Trace {
			if te.Kind == a.Kind {
				got++
			}
		}
		if got != a.Count {
			return fmt.Sprintf("%d %s events, expected %d", got, a.Kind, a.Count)
		}
	}
	return ""
}
