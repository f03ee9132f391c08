package runner

import (
	"context"

	"bot-tester/internal/report"
	"bot-tester/internal/scenario"
)

// Suite is an independently runnable group of tests. Scenario files are the
// common implementation, but programmatic suites can implement this directly
// and be composed into the same run.
type Suite interface {
	Name() string
	Run(ctx context.Context) ([]report.TestResult, error)
}

// ScenarioSuite adapts a declarative scenario to the Suite interface.
type ScenarioSuite struct {
	Scenario *scenario.Scenario
	Runner   *Runner
}

// Name returns the scenario name.
func (s ScenarioSuite) Name() string { return s.Scenario.Name }

// Run executes every test case in the scenario and returns the individual
// results. Setup/teardown and pacing behave exactly as in RunScenario.
func (s ScenarioSuite) Run(ctx context.Context) ([]report.TestResult, error) {
	result, err := s.Runner.RunScenario(ctx, s.Scenario)
	return result.TestResults, err
}
