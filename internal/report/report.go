package report

import (
	"time"
)

// Status classifies a test outcome. An error (transport failure during
// send/collect/click) is distinct from a failure (validators rejected the
// collected responses).
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// ValidationOutcome is one validator's verdict as recorded in a result.
type ValidationOutcome struct {
	Passed  bool           `json:"passed"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// TestResult is the outcome of exactly one executed (or skipped) test case.
type TestResult struct {
	TestName          string              `json:"test_name"`
	ScenarioName      string              `json:"scenario_name"`
	Status            Status              `json:"status"`
	DurationMS        float64             `json:"duration_ms"`
	Command           string              `json:"command"`
	ValidationResults []ValidationOutcome `json:"validation_results,omitempty"`
	Error             string              `json:"error,omitempty"`
	ResponsePreview   string              `json:"response_preview,omitempty"`
	SkipReason        string              `json:"skip_reason,omitempty"`
}

// Passed reports whether the test ended in a passing state.
func (r TestResult) Passed() bool { return r.Status == StatusPassed }

// ScenarioResult aggregates the results of one scenario.
type ScenarioResult struct {
	Name         string       `json:"name"`
	Passed       bool         `json:"passed"`
	TotalTests   int          `json:"total_tests"`
	PassedTests  int          `json:"passed_tests"`
	FailedTests  int          `json:"failed_tests"`
	SkippedTests int          `json:"skipped_tests"`
	ErrorTests   int          `json:"error_tests"`
	DurationMS   float64      `json:"duration_ms"`
	TestResults  []TestResult `json:"test_results"`
}

// Report is the one-shot snapshot of a whole run, built after the last
// scenario finishes and never mutated afterwards.
type Report struct {
	RunID            string           `json:"run_id"`
	Timestamp        time.Time        `json:"timestamp"`
	TotalScenarios   int              `json:"total_scenarios"`
	PassedScenarios  int              `json:"passed_scenarios"`
	FailedScenarios  int              `json:"failed_scenarios"`
	TotalTests       int              `json:"total_tests"`
	PassedTests      int              `json:"passed_tests"`
	FailedTests      int              `json:"failed_tests"`
	SkippedTests     int              `json:"skipped_tests"`
	ErrorTests       int              `json:"error_tests"`
	TotalDurationMS  float64          `json:"total_duration_ms"`
	ScenarioResults  []ScenarioResult `json:"scenario_results"`
}

// Failed reports whether any non-skipped test failed or errored.
func (r Report) Failed() bool {
	return r.FailedTests > 0 || r.ErrorTests > 0
}
