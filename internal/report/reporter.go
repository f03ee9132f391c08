package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reporter accumulates results during a run and produces the final Report.
// Results are append-only; the report itself is built once at the end.
type Reporter struct {
	logger *logrus.Logger

	runID     string
	startTime time.Time

	scenarioResults []ScenarioResult

	currentScenario string
	currentTests    []TestResult
	scenarioStart   time.Time
}

// NewReporter creates a Reporter logging progress through logger.
func NewReporter(logger *logrus.Logger) *Reporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reporter{logger: logger}
}

// StartRun marks the start of a test run and assigns it a run ID.
func (r *Reporter) StartRun() {
	r.runID = uuid.NewString()
	r.startTime = time.Now()
	r.scenarioResults = nil
	r.logger.Infof("Test run started (run id %s)", r.runID)
}

// StartScenario marks the start of a scenario.
func (r *Reporter) StartScenario(name string) {
	r.currentScenario = name
	r.currentTests = nil
	r.scenarioStart = time.Now()
	r.logger.Infof("Starting scenario: %s", name)
}

// AddTestResult records one test result in the current scenario.
func (r *Reporter) AddTestResult(result TestResult) {
	r.currentTests = append(r.currentTests, result)

	switch result.Status {
	case StatusPassed:
		r.logger.Infof("  [PASS] %s (%.0fms)", result.TestName, result.DurationMS)
	case StatusSkipped:
		r.logger.Infof("  [SKIP] %s: %s", result.TestName, result.SkipReason)
	case StatusError:
		r.logger.Errorf("  [ERROR] %s (%.0fms): %s", result.TestName, result.DurationMS, result.Error)
	default:
		r.logger.Warnf("  [FAIL] %s (%.0fms)", result.TestName, result.DurationMS)
		for _, vr := range result.ValidationResults {
			if !vr.Passed {
				r.logger.Warnf("    %s", vr.Message)
			}
		}
	}
}

// EndScenario closes the current scenario and rolls its results up.
func (r *Reporter) EndScenario() (ScenarioResult, error) {
	if r.currentScenario == "" {
		return ScenarioResult{}, fmt.Errorf("no scenario in progress")
	}

	var passed, failed, skipped, errored int
	for _, t := range r.currentTests {
		switch t.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		case StatusError:
			errored++
		}
	}

	result := ScenarioResult{
		Name:         r.currentScenario,
		Passed:       failed == 0 && errored == 0,
		TotalTests:   len(r.currentTests),
		PassedTests:  passed,
		FailedTests:  failed,
		SkippedTests: skipped,
		ErrorTests:   errored,
		DurationMS:   float64(time.Since(r.scenarioStart)) / float64(time.Millisecond),
		TestResults:  r.currentTests,
	}
	r.scenarioResults = append(r.scenarioResults, result)
	r.currentScenario = ""
	r.currentTests = nil

	status := "PASSED"
	if !result.Passed {
		status = "FAILED"
	}
	r.logger.Infof("Scenario %q %s: %d/%d passed, %d skipped",
		result.Name, status, passed, result.TotalTests, skipped)

	return result, nil
}

// Generate builds the final report from everything accumulated so far.
func (r *Reporter) Generate() (Report, error) {
	if r.startTime.IsZero() {
		return Report{}, fmt.Errorf("test run not started")
	}

	rep := Report{
		RunID:           r.runID,
		Timestamp:       r.startTime,
		TotalScenarios:  len(r.scenarioResults),
		TotalDurationMS: float64(time.Since(r.startTime)) / float64(time.Millisecond),
		ScenarioResults: r.scenarioResults,
	}

	for _, s := range r.scenarioResults {
		rep.TotalTests += s.TotalTests
		rep.PassedTests += s.PassedTests
		rep.FailedTests += s.FailedTests
		rep.SkippedTests += s.SkippedTests
		rep.ErrorTests += s.ErrorTests
		if s.Passed {
			rep.PassedScenarios++
		} else {
			rep.FailedScenarios++
		}
	}

	r.logger.Info("============================================================")
	r.logger.Info("TEST RUN SUMMARY")
	r.logger.Infof("Scenarios: %d/%d passed", rep.PassedScenarios, rep.TotalScenarios)
	r.logger.Infof("Tests: %d/%d passed, %d skipped, %d errors",
		rep.PassedTests, rep.TotalTests, rep.SkippedTests, rep.ErrorTests)
	r.logger.Infof("Duration: %.0fms", rep.TotalDurationMS)
	r.logger.Info("============================================================")

	return rep, nil
}
