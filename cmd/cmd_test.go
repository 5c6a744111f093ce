package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		historyFormat = ""
		maxPathNodes = 0
	})
	err := rootCmd.Execute()
	return out.String(), err
}

// writeConfig points the graph section at the scenario CSV city.
func writeConfig(t *testing.T) string {
	t.Helper()
	city, err := filepath.Abs("../qa/scenarios/testdata/city")
	require.NoError(t, err)
	cfg := map[string]any{
		"log_level": "warn",
		"graph": map[string]string{
			"locations": filepath.Join(city, "locations.csv"),
			"paths":     filepath.Join(city, "paths.csv"),
		},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRoute(t *testing.T) {
	out, err := execute(t, "route", "-c", writeConfig(t), "Z1_S1_1", "Z1_S1_3")
	require.NoError(t, err)
	var p struct {
		Nodes    []string `json:"nodes"`
		Distance float64  `json:"distance"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, []string{"Z1_S1_1", "Z1_S1_2", "Z1_S1_3"}, p.Nodes)
	assert.Equal(t, 20.0, p.Distance)
}

func TestRoute_NoPath(t *testing.T) {
	_, err := execute(t, "route", "-c", writeConfig(t), "Z1_S1_1", "nowhere")
	assert.Error(t, err)
}

func TestRoute_BadConfig(t *testing.T) {
	_, err := execute(t, "route", "-c", filepath.Join(t.TempDir(), "missing.yaml"), "a", "b")
	assert.Error(t, err)
}

func TestSimulate(t *testing.T) {
	out, err := execute(t, "simulate", "../qa/scenarios/testdata/rollback.yaml")
	require.NoError(t, err)
	var res struct {
		Ledger   int      `json:"ledger"`
		Failures []string `json:"failures"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Ledger)
	assert.Empty(t, res.Failures)
}

func TestSimulate_History(t *testing.T) {
	out, err := execute(t, "simulate", "--history", "csv", "../qa/scenarios/testdata/full_ride.yaml")
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "10", rows[1][0])
}

func TestSimulate_MissingFile(t *testing.T) {
	_, err := execute(t, "simulate", "does-not-exist.yaml")
	assert.Error(t, err)
}
