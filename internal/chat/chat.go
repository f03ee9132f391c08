package chat

import (
	"context"
	"errors"
	"time"
)

// ErrButtonNotFound is returned when a button reference matches nothing
// in the message's keyboard.
var ErrButtonNotFound = errors.New("button not found")

// ErrNotConnected is returned when an operation is attempted before Connect.
var ErrNotConnected = errors.New("client not connected")

// Button is one element of an inline keyboard grid.
type Button struct {
	Text string
	Data []byte
	URL  string
}

// Message is a single message in the shared conversation with the target bot.
// The harness never mutates a Message after it is received.
type Message struct {
	ID       string
	Text     string
	Time     time.Time
	Outgoing bool
	HasMedia bool
	Keyboard [][]Button
}

// Buttons returns the keyboard flattened row by row.
func (m Message) Buttons() []Button {
	if len(m.Keyboard) == 0 {
		return nil
	}
	var all []Button
	for _, row := range m.Keyboard {
		all = append(all, row...)
	}
	return all
}

// ButtonRef identifies a button inside a message keyboard. Position takes
// precedence over text, text over data.
type ButtonRef struct {
	Row  int
	Col  int
	Text string
	Data []byte

	// ByPosition must be set for Row/Col to be considered, since (0, 0)
	// is a valid position.
	ByPosition bool
}

// FindButton locates a button in msg's keyboard. Returns ErrButtonNotFound
// when the reference matches nothing.
func FindButton(msg Message, ref ButtonRef) (Button, error) {
	if len(msg.Keyboard) == 0 {
		return Button{}, ErrButtonNotFound
	}

	if ref.ByPosition {
		if ref.Row < 0 || ref.Row >= len(msg.Keyboard) {
			return Button{}, ErrButtonNotFound
		}
		row := msg.Keyboard[ref.Row]
		if ref.Col < 0 || ref.Col >= len(row) {
			return Button{}, ErrButtonNotFound
		}
		return row[ref.Col], nil
	}

	if ref.Text != "" {
		for _, row := range msg.Keyboard {
			for _, btn := range row {
				if btn.Text == ref.Text {
					return btn, nil
				}
			}
		}
		return Button{}, ErrButtonNotFound
	}

	if len(ref.Data) > 0 {
		for _, row := range msg.Keyboard {
			for _, btn := range row {
				if string(btn.Data) == string(ref.Data) {
					return btn, nil
				}
			}
		}
	}

	return Button{}, ErrButtonNotFound
}

// MessageSource is the read side of the conversation, consumed by the
// response collector.
type MessageSource interface {
	// RecentMessages returns up to limit of the newest messages in the
	// conversation, ordered oldest first.
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
}

// Client is the messaging capability set the harness depends on. The core
// uses only these operations and assumes nothing about the transport behind
// them.
type Client interface {
	MessageSource

	// Connect authenticates against the transport and resolves the target
	// bot conversation.
	Connect(ctx context.Context) error

	// SendText sends a plain text message (command) to the target bot.
	SendText(ctx context.Context, text string) error

	// ClickButton activates an inline button on a previously received
	// message. Returns ErrButtonNotFound when ref matches no button.
	ClickButton(ctx context.Context, msg Message, ref ButtonRef) error

	Close() error
}
