package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"bot-tester/internal/validator"
)

// TestCase is one command to send with its declarative expectations. Loaded
// once, never mutated afterwards. A zero TimeoutSec means the runner's
// configured default applies.
type TestCase struct {
	Name        string           `yaml:"name"`
	Command     string           `yaml:"command"`
	Expected    []validator.Spec `yaml:"expected,omitempty"`
	TimeoutSec  int              `yaml:"timeout,omitempty"`
	Description string           `yaml:"description,omitempty"`
	Skip        bool             `yaml:"skip,omitempty"`
	SkipReason  string           `yaml:"skip_reason,omitempty"`
}

// Scenario is one named, ordered collection of setup/teardown commands and
// test cases, mapping 1:1 to one scenario file.
type Scenario struct {
	Name             string     `yaml:"name"`
	Description      string     `yaml:"description,omitempty"`
	SetupCommands    []string   `yaml:"setup_commands,omitempty"`
	TeardownCommands []string   `yaml:"teardown_commands,omitempty"`
	Tests            []TestCase `yaml:"tests"`
}

// Load reads one scenario from a YAML file. A missing name defaults to the
// file stem; a missing test timeout stays zero for the runner to fill in.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	if sc.Name == "" {
		base := filepath.Base(path)
		sc.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	for i := range sc.Tests {
		t := &sc.Tests[i]
		if t.Name == "" {
			return nil, fmt.Errorf("test %d has no name", i+1)
		}
		if t.Command == "" {
			return nil, fmt.Errorf("test %q has no command", t.Name)
		}
		// Surface malformed expectations at load time, before any network
		// activity.
		if _, err := validator.FromSpecs(t.Expected); err != nil {
			return nil, fmt.Errorf("test %q: %w", t.Name, err)
		}
	}

	return &sc, nil
}

// LoadDir loads every recognized scenario file in a directory, sorted by
// file name. Files that fail to load are logged and skipped; the rest of
// the set still runs.
func LoadDir(dir string, logger *logrus.Logger) ([]*Scenario, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	var scenarios []*Scenario
	for _, path := range paths {
		sc, err := Load(path)
		if err != nil {
			logger.Errorf("Failed to load scenario from %s: %v", path, err)
			continue
		}
		scenarios = append(scenarios, sc)
		logger.Infof("Loaded scenario: %s (%d tests)", sc.Name, len(sc.Tests))
	}

	return scenarios, nil
}

// Save writes a scenario back to YAML. Used for authoring tooling and to
// keep the format round-trippable.
func Save(sc *Scenario, path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
