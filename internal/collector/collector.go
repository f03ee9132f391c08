package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"bot-tester/internal/chat"
	"bot-tester/internal/config"
)

// Default timings for the stabilization heuristic. They are starting points,
// not tuned constants: a bot that paces its replies slower than the
// stabilization wait needs a larger value, set via [collector] in the config.
const (
	defaultPollInterval      = 300 * time.Millisecond
	defaultStabilizationWait = 500 * time.Millisecond
	defaultInitialWait       = 500 * time.Millisecond
	defaultClickTimeout      = 5 * time.Second
	defaultPollLimit         = 10
)

// Options tunes the collection loop.
type Options struct {
	// PollInterval is the pause between polls while no reply has arrived.
	PollInterval time.Duration

	// StabilizationWait is the pause inserted after the candidate set grows,
	// giving a multi-message burst time to finish before the next comparison.
	StabilizationWait time.Duration

	// InitialWait is the pause between sending a command and the first poll.
	InitialWait time.Duration

	// ClickTimeout is the collection budget after a button click. Callback
	// responses are typically a single message, so this is much shorter than
	// a test timeout.
	ClickTimeout time.Duration

	// PollLimit is the number of recent messages requested per poll.
	PollLimit int
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		PollInterval:      defaultPollInterval,
		StabilizationWait: defaultStabilizationWait,
		InitialWait:       defaultInitialWait,
		ClickTimeout:      defaultClickTimeout,
		PollLimit:         defaultPollLimit,
	}
}

// FromConfig builds Options from the [collector] configuration section.
func FromConfig(cfg config.CollectorConfig) Options {
	return Options{
		PollInterval:      time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		StabilizationWait: time.Duration(cfg.StabilizationWaitMS) * time.Millisecond,
		InitialWait:       time.Duration(cfg.InitialWaitMS) * time.Millisecond,
		ClickTimeout:      time.Duration(cfg.ClickTimeoutSec) * time.Second,
		PollLimit:         cfg.PollLimit,
	}
}

// Collector gathers the target bot's reply to one command by polling the
// conversation and deciding, without an end-of-reply signal, when the reply
// is complete.
//
// The decision rule: after each poll, compare the candidate set against the
// previous observation. Growth buys one stabilization wait; no growth after
// a non-empty observation means the bot has stopped. The trade-offs are
// deliberate and documented: a bot that pauses longer than the stabilization
// wait gets its reply truncated, and a bot that never pauses is cut at the
// timeout boundary.
type Collector struct {
	source chat.MessageSource
	opts   Options
	logger *logrus.Logger
}

// New creates a Collector. Zero option fields fall back to defaults, except
// InitialWait: zero is kept and means the first poll happens immediately;
// only a negative value takes the default.
func New(source chat.MessageSource, opts Options, logger *logrus.Logger) *Collector {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.StabilizationWait <= 0 {
		opts.StabilizationWait = def.StabilizationWait
	}
	if opts.InitialWait < 0 {
		opts.InitialWait = def.InitialWait
	}
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = def.ClickTimeout
	}
	if opts.PollLimit <= 0 {
		opts.PollLimit = def.PollLimit
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Collector{source: source, opts: opts, logger: logger}
}

// Collect returns the ordered sequence of messages the bot produced after
// sentAt, within the timeout budget. An empty result with a nil error means
// the bot never replied; a non-nil error means the transport failed.
func (c *Collector) Collect(ctx context.Context, sentAt time.Time, timeout time.Duration) ([]chat.Message, error) {
	deadline := time.Now().Add(timeout)

	if c.opts.InitialWait > 0 {
		if err := sleepCtx(ctx, c.opts.InitialWait); err != nil {
			return nil, err
		}
	}

	var responses []chat.Message

	for time.Now().Before(deadline) {
		candidates, err := c.poll(ctx, sentAt)
		if err != nil {
			return nil, err
		}

		switch {
		case len(candidates) > len(responses):
			// The reply is still growing: absorb the burst and look again.
			responses = candidates
			c.logger.Debugf("Collected %d candidate message(s), waiting for stabilization", len(responses))
			if err := sleepCtx(ctx, c.opts.StabilizationWait); err != nil {
				return nil, err
			}
		case len(responses) > 0:
			// One full stabilization wait with no growth: the reply is final.
			c.logger.Debugf("Response stable at %d message(s)", len(responses))
			return responses, nil
		default:
			if err := sleepCtx(ctx, c.opts.PollInterval); err != nil {
				return nil, err
			}
		}
	}

	if len(responses) == 0 {
		c.logger.Debugf("No response within %v", timeout)
	}
	return responses, nil
}

// CollectAfterClick collects the response to a button click under the
// shorter click timeout.
func (c *Collector) CollectAfterClick(ctx context.Context, clickedAt time.Time) ([]chat.Message, error) {
	return c.Collect(ctx, clickedAt, c.opts.ClickTimeout)
}

// poll fetches recent messages and filters them down to reply candidates:
// received after sentAt and not sent by us, ordered oldest first.
func (c *Collector) poll(ctx context.Context, sentAt time.Time) ([]chat.Message, error) {
	messages, err := c.source.RecentMessages(ctx, c.opts.PollLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to poll messages: %w", err)
	}

	var candidates []chat.Message
	for _, msg := range messages {
		if msg.Outgoing || !msg.Time.After(sentAt) {
			continue
		}
		candidates = append(candidates, msg)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Time.Before(candidates[j].Time)
	})
	return candidates, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
