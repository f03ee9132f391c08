// Package interactive provides a REPL for poking at the target bot by hand:
// send commands, inspect replies and their keyboards, click buttons.
package interactive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bot-tester/internal/chat"
	"bot-tester/internal/collector"
)

// Session is one interactive conversation with the target bot.
type Session struct {
	client    chat.Client
	collector *collector.Collector
	logger    *logrus.Logger
	timeout   time.Duration

	in  io.Reader
	out io.Writer

	// last message that carried a keyboard, for /click and /buttons
	lastKeyboarded *chat.Message
}

// NewSession creates an interactive session reading commands from in and
// printing to out.
func NewSession(client chat.Client, coll *collector.Collector, logger *logrus.Logger, timeout time.Duration, in io.Reader, out io.Writer) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Session{
		client:    client,
		collector: coll,
		logger:    logger,
		timeout:   timeout,
		in:        in,
		out:       out,
	}
}

// Run reads commands until EOF or /quit. Transport errors are printed and
// the loop continues.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Interactive mode. Type a command to send it to the bot.")
	fmt.Fprintln(s.out, "Special commands: /buttons, /click <n>, /quit")

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/buttons":
			s.printButtons()
		case strings.HasPrefix(line, "/click "):
			s.click(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/click ")))
		default:
			s.send(ctx, line)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Session) send(ctx context.Context, text string) {
	sentAt := time.Now()
	if err := s.client.SendText(ctx, text); err != nil {
		fmt.Fprintf(s.out, "send failed: %v\n", err)
		return
	}

	responses, err := s.collector.Collect(ctx, sentAt, s.timeout)
	if err != nil {
		fmt.Fprintf(s.out, "collect failed: %v\n", err)
		return
	}
	s.printResponses(responses)
}

func (s *Session) click(ctx context.Context, arg string) {
	if s.lastKeyboarded == nil {
		fmt.Fprintln(s.out, "no message with buttons yet")
		return
	}

	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		fmt.Fprintf(s.out, "usage: /click <n> (0-based button index)\n")
		return
	}

	buttons := s.lastKeyboarded.Buttons()
	if n >= len(buttons) {
		fmt.Fprintf(s.out, "button %d out of range, %d button(s) available\n", n, len(buttons))
		return
	}

	ref := chat.ButtonRef{Text: buttons[n].Text}
	if len(buttons[n].Data) > 0 {
		ref = chat.ButtonRef{Data: buttons[n].Data}
	}

	clickedAt := time.Now()
	if err := s.client.ClickButton(ctx, *s.lastKeyboarded, ref); err != nil {
		fmt.Fprintf(s.out, "click failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "clicked %q\n", buttons[n].Text)

	responses, err := s.collector.CollectAfterClick(ctx, clickedAt)
	if err != nil {
		fmt.Fprintf(s.out, "collect failed: %v\n", err)
		return
	}
	s.printResponses(responses)
}

func (s *Session) printResponses(responses []chat.Message) {
	if len(responses) == 0 {
		fmt.Fprintln(s.out, "(no response)")
		return
	}

	for _, msg := range responses {
		if msg.Text != "" {
			fmt.Fprintf(s.out, "bot: %s\n", msg.Text)
		} else if msg.HasMedia {
			fmt.Fprintln(s.out, "bot: (media)")
		}
		if len(msg.Keyboard) > 0 {
			m := msg
			s.lastKeyboarded = &m
			s.printButtons()
		}
	}
}

func (s *Session) printButtons() {
	if s.lastKeyboarded == nil || len(s.lastKeyboarded.Keyboard) == 0 {
		fmt.Fprintln(s.out, "no buttons")
		return
	}

	idx := 0
	for _, row := range s.lastKeyboarded.Keyboard {
		var cells []string
		for _, btn := range row {
			cells = append(cells, fmt.Sprintf("[%d] %s", idx, btn.Text))
			idx++
		}
		fmt.Fprintf(s.out, "  %s\n", strings.Join(cells, "  "))
	}
}
