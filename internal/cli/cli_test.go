package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliTestWorld = `
world: {
	seed: 42
	ports: [
		{name: "A", x: 0.0, y: 0.0},
		{name: "B", x: 0.3, y: 0.0},
	]
	companies: [{
		name:          "Northwind"
		strategy:      "first_fit"
		profit_factor: 2.0
		vessels: [{
			name:  "mx-1"
			speed: 0.1
			port:  "A"
			capacities: [{cargo_type: "oil", capacity: 400.0, loading_rate: 100.0}]
		}]
	}]
	trades: [{
		origin:      "A"
		destination: "B"
		amount:      100.0
		cargo_type:  "oil"
		time:        0.0
		window: {latest_dropoff: 48.0}
	}]
}
`

func writeTestWorld(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "world.cue"), []byte(content), 0o644))
	return dir
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	dir := writeTestWorld(t, cliTestWorld)

	_, _, err := executeCommand(t, "--format", "xml", "validate", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestValidateCommand_ValidWorld(t *testing.T) {
	dir := writeTestWorld(t, cliTestWorld)

	stdout, _, err := executeCommand(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Valid world: 2 port(s), 1 company(ies), 1 vessel(s), 1 trade(s)")
}

func TestValidateCommand_ValidWorldJSON(t *testing.T) {
	dir := writeTestWorld(t, cliTestWorld)

	stdout, _, err := executeCommand(t, "--format", "json", "validate", dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateCommand_InvalidWorld(t *testing.T) {
	dir := writeTestWorld(t, `
world: {
	seed: 1
	ports: []
	companies: []
	trades: []
}
`)

	stdout, _, err := executeCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error:")
}

func TestValidateCommand_MissingDir(t *testing.T) {
	_, _, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRunCommand_CompletesSimulation(t *testing.T) {
	dir := writeTestWorld(t, cliTestWorld)

	stdout, _, err := executeCommand(t, "run", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Simulation complete at t=5.00")
	assert.Contains(t, stdout, "Northwind: 1 contract(s), 1 delivered, revenue 10.00")
}

func TestRunCommand_WritesDatabaseAndMetrics(t *testing.T) {
	dir := writeTestWorld(t, cliTestWorld)
	out := t.TempDir()
	dbPath := filepath.Join(out, "runs.db")
	metricsPath := filepath.Join(out, "metrics.json")

	_, _, err := executeCommand(t, "run", dir,
		"--db", dbPath,
		"--metrics", metricsPath,
		"--run-id", "test-run")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)

	var report struct {
		Companies map[string]struct {
			Revenue      float64 `json:"revenue"`
			ContractsWon int     `json:"contracts_won"`
		} `json:"companies"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	require.Contains(t, report.Companies, "Northwind")
	assert.Equal(t, 1, report.Companies["Northwind"].ContractsWon)
	assert.InDelta(t, 10.0, report.Companies["Northwind"].Revenue, 1e-9)
}

func TestRunCommand_BadWorldDirExitsWithCommandError(t *testing.T) {
	_, _, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
