package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioIn(t *testing.T, dir, rundownName, rundownBody, scenarioBody string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, rundownName), []byte(rundownBody), 0o600))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioBody), 0o600))
	return path
}

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "addtime_offset.yaml"),
		filepath.Join("testdata", "scenarios", "apply_delay.yaml"),
		filepath.Join("testdata", "scenarios", "play_next_chain.yaml"),
		filepath.Join("testdata", "scenarios", "roll_follows_clock.yaml"),
	}, paths)

	_, err = FindScenarios("testdata/missing")
	assert.Error(t, err)
}

func TestRunSuite(t *testing.T) {
	results := RunSuite([]string{
		"testdata/scenarios/play_next_chain.yaml",
		"testdata/invalid/bad_step.yaml",
	})
	require.Len(t, results, 2)

	assert.True(t, results[0].Passed())
	assert.Equal(t, "play_next_chain", results[0].Scenario)

	assert.False(t, results[1].Passed())
	assert.Contains(t, results[1].Err, "flow[0]")
	assert.Nil(t, results[1].Result)
}
