package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookahead-backtest/internal/archive"
	"lookahead-backtest/internal/model"
)

const pulseSeries = `{"name":"pulse","prices":[
	{"timestamp":"2024-07-01T00:00:00Z","price":10},
	{"timestamp":"2024-07-01T00:15:00Z","price":50},
	{"timestamp":"2024-07-01T00:30:00Z","price":10},
	{"timestamp":"2024-07-01T00:45:00Z","price":50}]}`

// writeWorkspace writes a config with one dataset, an archive and a log file under a temp dir.
func writeWorkspace(t *testing.T) (cfgPath, dbPath, logPath string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pulse.json"), []byte(pulseSeries), 0o644))
	dbPath = filepath.Join(dir, "runs.db")
	logPath = filepath.Join(dir, "backtest.log")
	body := fmt.Sprintf(`battery: {energy_capacity_mwh: 1, power_capacity_mw: 1}
strategy: {horizon: 2}
sweep: {horizons: "1-4"}
datasets: [{name: pulse, path: pulse.json}]
archive: {enabled: true, path: %q}
logging: {level: debug, file: %q}
`, dbPath, logPath)
	cfgPath = filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath, dbPath, logPath
}

func TestCommandsReturnValidationErrors(t *testing.T) {
	cfgPath, _, _ := writeWorkspace(t)
	cases := []struct {
		name  string
		run   func([]string) error
		args  []string
		field string
	}{
		{"explicit zero horizon", cmdSimulate, []string{"--config", cfgPath, "--horizon", "0"}, "horizon"},
		{"horizon past series", cmdSimulate, []string{"--config", cfgPath, "--horizon", "5"}, "horizon"},
		{"zero in horizon list", cmdSweep, []string{"--config", cfgPath, "--horizons", "0,2", "--no-archive"}, "horizons"},
		{"horizon range too large", cmdSweep, []string{"--config", cfgPath, "--horizons", "1-5000000", "--no-archive"}, "horizons"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run(tc.args)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	require.Error(t, cmdSimulate(nil), "--config is required")
}

func TestSweepArchivesAndRunsReleasesArchiveOnError(t *testing.T) {
	cfgPath, dbPath, logPath := writeWorkspace(t)

	require.NoError(t, cmdSimulate([]string{"--config", cfgPath}))
	require.NoError(t, cmdSweep([]string{"--config", cfgPath, "--label", "cli"}))

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Archived sweep")

	err = cmdRuns([]string{"--db", dbPath, "--delete", "no-such-run"})
	require.ErrorIs(t, err, archive.ErrNotFound)

	// The failed command closed its handle, so the archive is usable afterwards.
	a, err := archive.Open(dbPath)
	require.NoError(t, err)
	defer a.Close()
	runs, err := a.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "cli", runs[0].Label)
	require.NoError(t, a.DeleteRun(runs[0].ID))
}
