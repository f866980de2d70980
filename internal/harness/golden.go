package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/flotillasim/flotilla/internal/scenario"
)

// TraceSnapshot is the golden-file representation of a run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// RunWithGolden runs a scenario and compares its trace against the golden
// file testdata/golden/{scenario.Name}.golden. Regenerate with
//
//	go test ./internal/harness -update
//
// Assertion failures and trace drift both fail the test.
func RunWithGolden(t *testing.T, sc *scenario.Scenario) *Result {
	t.Helper()

	result, err := Run(sc)
	if err != nil {
		t.Fatalf("run scenario %s: %v", sc.Name, err)
	}
	for _, failure := range result.Failures {
		t.Errorf("scenario %s: %s", sc.Name, failure)
	}

	snapshot := TraceSnapshot{
		ScenarioName: sc.Name,
		Trace:        result.Trace,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		t.Fatalf("marshal trace snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return result
}
