package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult is the outcome of one scenario file in a directory run.
type SuiteResult struct {
	Path     string  `json:"path"`
	Scenario string  `json:"scenario"`
	Result   *Result `json:"result,omitempty"`

	// Err is set when the scenario could not be loaded or run.
	Err string `json:"error,omitempty"`
}

// Passed reports whether the scenario loaded, ran and passed.
func (s SuiteResult) Passed() bool {
	return s.Err == "" && s.Result != nil && s.Result.Pass
}

// FindScenarios returns the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find scenarios in %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario in paths. Load and run failures
// are recorded per scenario rather than aborting the suite.
func RunSuite(paths []string) []SuiteResult {
	results := make([]SuiteResult, 0, len(paths))
	for _, path := range paths {
		sr := SuiteResult{Path: path}
		scenario, err := LoadScenario(path)
		if err != nil {
			sr.Err = err.Error()
			results = append(results, sr)
			continue
		}
		sr.Scenario = scenario.Name
		sr.Result, err = Run(scenario)
		if err != nil {
			sr.Err = err.Error()
		}
		results = append(results, sr)
	}
	return results
}
