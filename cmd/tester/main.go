package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bot-tester/internal/chat"
	"bot-tester/internal/collector"
	"bot-tester/internal/config"
	"bot-tester/internal/history"
	"bot-tester/internal/interactive"
	"bot-tester/internal/logging"
	"bot-tester/internal/report"
	"bot-tester/internal/runner"
	"bot-tester/internal/scenario"
	"bot-tester/internal/telegram"
)

// errTestsFailed signals a clean run with failing tests; it maps to exit
// code 1 without an error banner.
var errTestsFailed = errors.New("one or more tests failed")

var (
	configPath   string
	verbose      bool
	scenarioPath string
	scenariosDir string
	outputPath   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:           "tester",
	Short:         "Command-driven test harness for Telegram bots",
	Long:          "tester drives a target bot through a shared Telegram conversation:\nit sends commands, collects replies, clicks inline buttons, and validates\nthe replies against declarative scenario files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run test scenarios against the target bot",
	RunE:  runScenarios,
}

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Send /start and check that the bot answers",
	RunE:  runQuick,
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Drive the conversation by hand",
	RunE:  runInteractive,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show summaries of past runs",
	RunE:  showHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "specific scenario file to run")
	runCmd.Flags().StringVarP(&scenariosDir, "scenarios-dir", "d", "scenarios", "directory containing scenario files")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file for the test report")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "report format: json or text")

	rootCmd.AddCommand(runCmd, quickCmd, interactiveCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// bootstrap loads configuration and initializes logging. Configuration
// errors are fatal before any network activity.
func bootstrap() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, logger, nil
}

// connect builds and connects the Telegram client and its collector.
func connect(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (chat.Client, *collector.Collector, error) {
	client, err := telegram.NewClient(cfg.Telegram, cfg.Proxy)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}
	coll := collector.New(client, collector.FromConfig(cfg.Collector), logger)
	return client, coll, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	var scenarios []*scenario.Scenario
	if scenarioPath != "" {
		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			return fmt.Errorf("failed to load scenario %s: %w", scenarioPath, err)
		}
		scenarios = []*scenario.Scenario{sc}
	} else {
		scenarios, err = scenario.LoadDir(scenariosDir, logger)
		if err != nil {
			return fmt.Errorf("failed to load scenarios from %s: %w", scenariosDir, err)
		}
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios found to run")
	}
	logger.Infof("Loaded %d scenario(s)", len(scenarios))

	ctx, cancel := signalContext()
	defer cancel()

	client, coll, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	r := runner.New(client, coll, report.NewReporter(logger), logger, runner.FromConfig(cfg.Runner))
	rep, err := r.RunAll(ctx, scenarios)
	if err != nil {
		return err
	}

	format := cfg.Report.Format
	if outputFormat != "" {
		format = outputFormat
	}
	if outputPath == "" {
		outputPath = cfg.Report.Output
	}
	if outputPath != "" {
		if err := report.Save(rep, outputPath, format); err != nil {
			return err
		}
		logger.Infof("Report saved to %s", outputPath)
	}

	if store, err := history.NewStore(cfg.Report.HistoryPath); err != nil {
		logger.Warnf("Failed to open run history: %v", err)
	} else if err := store.Append(history.FromReport(rep)); err != nil {
		logger.Warnf("Failed to record run history: %v", err)
	}

	if rep.Failed() {
		return errTestsFailed
	}
	return nil
}

func runQuick(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, coll, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	sentAt := time.Now()
	if err := client.SendText(ctx, "/start"); err != nil {
		return fmt.Errorf("failed to send /start: %w", err)
	}

	responses, err := coll.Collect(ctx, sentAt, time.Duration(cfg.Runner.DefaultTimeoutSec)*time.Second)
	if err != nil {
		return err
	}
	if len(responses) == 0 {
		return fmt.Errorf("no response to /start")
	}

	fmt.Printf("Bot responds to /start with %d message(s)\n", len(responses))
	buttons := 0
	for _, msg := range responses {
		buttons += len(msg.Buttons())
	}
	if buttons > 0 {
		fmt.Printf("Menu has %d button(s)\n", buttons)
	} else {
		fmt.Println("No inline buttons found")
	}
	fmt.Println("Quick test passed")
	return nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, coll, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	session := interactive.NewSession(client, coll, logger,
		time.Duration(cfg.Runner.DefaultTimeoutSec)*time.Second, os.Stdin, os.Stdout)
	return session.Run(ctx)
}

func showHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := bootstrap()
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.Report.HistoryPath)
	if err != nil {
		return err
	}

	entries := store.List()
	if len(entries) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s  %d/%d passed, %d failed, %d skipped, %d errors (%.0fms)\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.RunID,
			e.PassedTests, e.TotalTests, e.FailedTests, e.SkippedTests, e.ErrorTests, e.DurationMS)
	}
	return nil
}
