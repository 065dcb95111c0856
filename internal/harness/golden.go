package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden form of a run.
type Snapshot struct {
	Scenario string        `json:"scenario"`
	Steps    []StepResult  `json:"steps"`
	Stored   []StoredEvent `json:"stored"`
}

// MarshalSnapshot renders the golden JSON for a result.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	return json.MarshalIndent(Snapshot{
		Scenario: name,
		Steps:    result.Steps,
		Stored:   result.Stored,
	}, "", "  ")
}

// RunWithGolden runs the scenario and compares its snapshot against
// testdata/golden/<name>.golden.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	data, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
