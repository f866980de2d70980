package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "world"), 0o755))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ResolvesWorldRelativeToScenario(t *testing.T) {
	path := writeScenario(t, `
name: demo
description: a demo run
world: world
assertions:
  - type: contracts
    company: Northwind
    count: 1
`)

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", sc.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "world"), sc.World)
	require.Len(t, sc.Assertions, 1)
	assert.Equal(t, AssertContracts, sc.Assertions[0].Type)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: demo
description: a demo run
world: world
assertion:
  - type: contracts
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsMissingWorldDir(t *testing.T) {
	path := writeScenario(t, `
name: demo
description: a demo run
world: nowhere
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidatesAssertions(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing type", "  - company: Northwind"},
		{"unknown type", "  - type: trace_contains"},
		{"contracts without company", "  - type: contracts\n    count: 1"},
		{"vessel_at without port", "  - type: vessel_at\n    vessel: mx-1"},
		{"event_count without kind", "  - type: event_count\n    count: 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeScenario(t, "name: demo\ndescription: a demo run\nworld: world\nassertions:\n"+tc.body+"\n")
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
