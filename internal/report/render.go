package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Save writes the report to a file in the requested format ("json" or
// "text"). The write goes through a temporary file and an atomic rename so
// a crash mid-write never leaves a truncated report behind.
func Save(rep Report, path, format string) error {
	var data []byte
	var err error

	switch format {
	case "json", "":
		data, err = json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
	case "text":
		data = []byte(FormatText(rep))
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// FormatText renders the report as a human-readable plain text document.
func FormatText(rep Report) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	thinRule := strings.Repeat("-", 60)

	fmt.Fprintf(&b, "%s\nTEST REPORT\nRun: %s\nGenerated: %s\n%s\n\n",
		rule, rep.RunID, rep.Timestamp.Format(time.RFC3339), rule)

	fmt.Fprintf(&b, "Total Scenarios: %d\n", rep.TotalScenarios)
	fmt.Fprintf(&b, "  Passed: %d\n", rep.PassedScenarios)
	fmt.Fprintf(&b, "  Failed: %d\n\n", rep.FailedScenarios)

	fmt.Fprintf(&b, "Total Tests: %d\n", rep.TotalTests)
	fmt.Fprintf(&b, "  Passed: %d\n", rep.PassedTests)
	fmt.Fprintf(&b, "  Failed: %d\n", rep.FailedTests)
	fmt.Fprintf(&b, "  Skipped: %d\n", rep.SkippedTests)
	fmt.Fprintf(&b, "  Errors: %d\n\n", rep.ErrorTests)

	fmt.Fprintf(&b, "Total Duration: %.0fms\n\n", rep.TotalDurationMS)
	fmt.Fprintf(&b, "%s\nDETAILED RESULTS\n%s\n", thinRule, thinRule)

	for _, sc := range rep.ScenarioResults {
		status := "PASSED"
		if !sc.Passed {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "\nScenario: %s [%s]\n", sc.Name, status)
		fmt.Fprintf(&b, "  Tests: %d/%d passed\n", sc.PassedTests, sc.TotalTests)

		for _, t := range sc.TestResults {
			fmt.Fprintf(&b, "  [%s] %s (%.0fms)\n", statusTag(t.Status), t.TestName, t.DurationMS)
			if t.Error != "" {
				fmt.Fprintf(&b, "         Error: %s\n", t.Error)
			}
			for _, vr := range t.ValidationResults {
				if !vr.Passed {
					fmt.Fprintf(&b, "         %s\n", vr.Message)
				}
			}
		}
	}

	b.WriteString("\n" + rule + "\n")
	return b.String()
}

func statusTag(s Status) string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusSkipped:
		return "SKIP"
	case StatusError:
		return "ERROR"
	default:
		return "FAIL"
	}
}
