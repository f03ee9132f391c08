// Package history keeps a bounded JSON record of past test runs so results
// can be compared across invocations.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"bot-tester/internal/report"
)

// maxEntries bounds the history file to the most recent runs.
const maxEntries = 100

// Entry is the summary of one completed run.
type Entry struct {
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	TotalTests   int       `json:"total_tests"`
	PassedTests  int       `json:"passed_tests"`
	FailedTests  int       `json:"failed_tests"`
	SkippedTests int       `json:"skipped_tests"`
	ErrorTests   int       `json:"error_tests"`
	DurationMS   float64   `json:"duration_ms"`
}

// FromReport builds a history entry from a finished report.
func FromReport(rep report.Report) Entry {
	return Entry{
		RunID:        rep.RunID,
		Timestamp:    rep.Timestamp,
		TotalTests:   rep.TotalTests,
		PassedTests:  rep.PassedTests,
		FailedTests:  rep.FailedTests,
		SkippedTests: rep.SkippedTests,
		ErrorTests:   rep.ErrorTests,
		DurationMS:   rep.TotalDurationMS,
	}
}

// Store is a file-backed run history.
type Store struct {
	mu sync.Mutex

	filePath string
	entries  []Entry
}

// NewStore opens (or creates) a history store at filePath.
func NewStore(filePath string) (*Store, error) {
	store := &Store{filePath: filePath}
	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load history file: %w", err)
	}
	return store, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var stored struct {
		Runs []Entry `json:"runs"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal history data: %w", err)
	}
	s.entries = stored.Runs
	return nil
}

// saveLocked writes the history to disk. Caller must hold the lock.
func (s *Store) saveLocked() error {
	stored := struct {
		Runs []Entry `json:"runs"`
	}{Runs: s.entries}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history data: %w", err)
	}

	// Write to temporary file first, then rename (atomic replace).
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Append records one run summary, trimming the history to the newest
// maxEntries entries.
func (s *Store) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if len(s.entries) > maxEntries {
		s.entries = s.entries[len(s.entries)-maxEntries:]
	}
	return s.saveLocked()
}

// List returns all recorded runs, oldest first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	return entries
}
