package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bot-tester/internal/chat"
	"bot-tester/internal/collector"
	"bot-tester/internal/config"
	"bot-tester/internal/report"
	"bot-tester/internal/scenario"
	"bot-tester/internal/validator"
)

// Preview limits applied when echoing bot responses into results.
const (
	previewMessages    = 3
	previewMessageSize = 100
)

// Options paces test execution. Tests run strictly sequentially because
// they share one conversation with the bot; the delays keep one test's bot
// state from bleeding into the next.
type Options struct {
	// SetupTimeout is the collection budget for setup/teardown commands.
	SetupTimeout time.Duration

	// SettleDelay is the pause after each setup/teardown command.
	SettleDelay time.Duration

	// InterTestDelay is the pause between tests within a scenario.
	InterTestDelay time.Duration

	// DefaultTimeout is the collection budget for tests that set no timeout
	// of their own.
	DefaultTimeout time.Duration
}

// DefaultOptions returns the pacing used when fields are left zero.
func DefaultOptions() Options {
	return Options{
		SetupTimeout:   5 * time.Second,
		SettleDelay:    time.Second,
		InterTestDelay: 500 * time.Millisecond,
		DefaultTimeout: 10 * time.Second,
	}
}

// FromConfig builds Options from the [runner] configuration section.
func FromConfig(cfg config.RunnerConfig) Options {
	return Options{
		SetupTimeout:   time.Duration(cfg.SetupTimeoutSec) * time.Second,
		SettleDelay:    time.Duration(cfg.SettleDelayMS) * time.Millisecond,
		InterTestDelay: time.Duration(cfg.InterTestDelayMS) * time.Millisecond,
		DefaultTimeout: time.Duration(cfg.DefaultTimeoutSec) * time.Second,
	}
}

// Runner executes scenarios against the target bot: setup commands, the
// per-test send/collect/validate loop, then teardown commands. A failing
// test never aborts its scenario, and a failing scenario never aborts the
// run.
type Runner struct {
	client    chat.Client
	collector *collector.Collector
	reporter  *report.Reporter
	logger    *logrus.Logger
	opts      Options
}

// New creates a Runner. Zero SetupTimeout and DefaultTimeout fall back to
// defaults. Zero SettleDelay and InterTestDelay are kept and mean no pause;
// only negative values take the defaults.
func New(client chat.Client, coll *collector.Collector, reporter *report.Reporter, logger *logrus.Logger, opts Options) *Runner {
	def := DefaultOptions()
	if opts.SetupTimeout <= 0 {
		opts.SetupTimeout = def.SetupTimeout
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = def.SettleDelay
	}
	if opts.InterTestDelay < 0 {
		opts.InterTestDelay = def.InterTestDelay
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = def.DefaultTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if reporter == nil {
		reporter = report.NewReporter(logger)
	}
	return &Runner{
		client:    client,
		collector: coll,
		reporter:  reporter,
		logger:    logger,
		opts:      opts,
	}
}

// RunAll executes every scenario in order and returns the aggregated
// report. Scenario-level failures are recorded and the run continues.
func (r *Runner) RunAll(ctx context.Context, scenarios []*scenario.Scenario) (report.Report, error) {
	r.reporter.StartRun()

	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return report.Report{}, err
		}
		if _, err := r.RunScenario(ctx, sc); err != nil {
			r.logger.Errorf("Scenario %q failed: %v", sc.Name, err)
		}
	}

	return r.reporter.Generate()
}

// RunScenario executes one scenario: setup, tests, teardown. A setup or
// teardown command that fails to send is recorded as a scenario-level error
// result rather than swallowed.
func (r *Runner) RunScenario(ctx context.Context, sc *scenario.Scenario) (report.ScenarioResult, error) {
	r.reporter.StartScenario(sc.Name)
	runErr := r.runScenarioBody(ctx, sc)
	result, endErr := r.reporter.EndScenario()
	if runErr == nil {
		runErr = endErr
	}
	return result, runErr
}

func (r *Runner) runScenarioBody(ctx context.Context, sc *scenario.Scenario) error {
	if err := r.runFixtureCommands(ctx, sc, "setup", sc.SetupCommands); err != nil {
		// Tests are pointless without the prepared state; skip straight to
		// the scenario rollup.
		return err
	}

	for i, test := range sc.Tests {
		result := r.runTest(ctx, test, sc.Name)
		r.reporter.AddTestResult(result)

		if i < len(sc.Tests)-1 {
			if err := sleepCtx(ctx, r.opts.InterTestDelay); err != nil {
				return err
			}
		}
	}

	return r.runFixtureCommands(ctx, sc, "teardown", sc.TeardownCommands)
}

// runFixtureCommands sends setup or teardown commands. Responses are
// collected only to drain the conversation; they are never validated.
func (r *Runner) runFixtureCommands(ctx context.Context, sc *scenario.Scenario, phase string, commands []string) error {
	for _, cmd := range commands {
		r.logger.Infof("Running %s command: %s", phase, cmd)

		sentAt := time.Now()
		if err := r.client.SendText(ctx, cmd); err != nil {
			wrapped := fmt.Errorf("%s command %q: %w", phase, cmd, err)
			r.reporter.AddTestResult(report.TestResult{
				TestName:     fmt.Sprintf("%s: %s", phase, cmd),
				ScenarioName: sc.Name,
				Status:       report.StatusError,
				Command:      cmd,
				Error:        wrapped.Error(),
			})
			return wrapped
		}
		if _, err := r.collector.Collect(ctx, sentAt, r.opts.SetupTimeout); err != nil {
			return fmt.Errorf("%s command %q: %w", phase, cmd, err)
		}
		if err := sleepCtx(ctx, r.opts.SettleDelay); err != nil {
			return err
		}
	}
	return nil
}

// runTest executes one test case: exactly one send, one collection, one
// validation pass.
func (r *Runner) runTest(ctx context.Context, test scenario.TestCase, scenarioName string) report.TestResult {
	if test.Skip {
		return report.TestResult{
			TestName:     test.Name,
			ScenarioName: scenarioName,
			Status:       report.StatusSkipped,
			Command:      test.Command,
			SkipReason:   test.SkipReason,
		}
	}

	start := time.Now()
	result := report.TestResult{
		TestName:     test.Name,
		ScenarioName: scenarioName,
		Command:      test.Command,
	}

	validators, err := validator.FromSpecs(test.Expected)
	if err != nil {
		result.Status = report.StatusError
		result.Error = err.Error()
		result.DurationMS = durationMS(start)
		return result
	}

	sentAt := time.Now()
	if err := r.client.SendText(ctx, test.Command); err != nil {
		result.Status = report.StatusError
		result.Error = err.Error()
		result.DurationMS = durationMS(start)
		return result
	}
	r.logger.Infof("Sent command: %s", test.Command)

	timeout := time.Duration(test.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}
	responses, err := r.collector.Collect(ctx, sentAt, timeout)
	if err != nil {
		result.Status = report.StatusError
		result.Error = err.Error()
		result.DurationMS = durationMS(start)
		return result
	}
	r.logger.Infof("Received %d response(s) for command: %s", len(responses), test.Command)

	if len(responses) == 0 && len(test.Expected) > 0 {
		// Nothing arrived within the budget; individual validators would
		// only restate that, so fail directly.
		result.Status = report.StatusFailed
		result.ValidationResults = []report.ValidationOutcome{{
			Passed:  false,
			Message: "No response received from bot",
		}}
		result.DurationMS = durationMS(start)
		return result
	}

	allPassed := true
	for _, v := range validators {
		vr := v.Validate(responses)
		result.ValidationResults = append(result.ValidationResults, report.ValidationOutcome{
			Passed:  vr.Passed,
			Message: vr.Message,
			Details: vr.Details,
		})
		if !vr.Passed {
			allPassed = false
		}
	}

	if allPassed {
		result.Status = report.StatusPassed
	} else {
		result.Status = report.StatusFailed
	}
	result.ResponsePreview = preview(responses)
	result.DurationMS = durationMS(start)
	return result
}

// preview joins the first few response texts for the result record.
func preview(responses []chat.Message) string {
	var parts []string
	for i, msg := range responses {
		if i >= previewMessages {
			break
		}
		if msg.Text == "" {
			continue
		}
		text := msg.Text
		if len(text) > previewMessageSize {
			text = text[:previewMessageSize]
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " | ")
}

func durationMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
