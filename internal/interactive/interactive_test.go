package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"bot-tester/internal/chat"
	"bot-tester/internal/collector"
)

type scriptedClient struct {
	mu      sync.Mutex
	log     []chat.Message
	clicked []string
	replies map[string][]chat.Message
	nextID  int
}

func (f *scriptedClient) Connect(ctx context.Context) error { return nil }
func (f *scriptedClient) Close() error                      { return nil }

func (f *scriptedClient) SendText(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.log = append(f.log, chat.Message{
		ID:       fmt.Sprintf("out-%d", f.nextID),
		Text:     text,
		Time:     time.Now(),
		Outgoing: true,
	})
	for _, reply := range f.replies[text] {
		f.nextID++
		reply.ID = fmt.Sprintf("in-%d", f.nextID)
		reply.Time = time.Now().Add(time.Millisecond)
		f.log = append(f.log, reply)
	}
	return nil
}

func (f *scriptedClient) ClickButton(ctx context.Context, msg chat.Message, ref chat.ButtonRef) error {
	btn, err := chat.FindButton(msg, ref)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.clicked = append(f.clicked, btn.Text)
	f.mu.Unlock()
	return nil
}

func (f *scriptedClient) RecentMessages(ctx context.Context, limit int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := 0
	if len(f.log) > limit {
		start = len(f.log) - limit
	}
	out := make([]chat.Message, len(f.log)-start)
	copy(out, f.log[start:])
	return out, nil
}

func newTestSession(client *scriptedClient, input string) (*Session, *strings.Builder) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	coll := collector.New(client, collector.Options{
		PollInterval:      5 * time.Millisecond,
		StabilizationWait: 15 * time.Millisecond,
		InitialWait:       time.Millisecond,
		ClickTimeout:      50 * time.Millisecond,
		PollLimit:         10,
	}, logger)

	var out strings.Builder
	return NewSession(client, coll, logger, 200*time.Millisecond, strings.NewReader(input), &out), &out
}

func TestSessionSendAndQuit(t *testing.T) {
	client := &scriptedClient{replies: map[string][]chat.Message{
		"/start": {{Text: "Welcome to the bot!"}},
	}}
	session, out := newTestSession(client, "/start\n/quit\n")

	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if !strings.Contains(out.String(), "bot: Welcome to the bot!") {
		t.Errorf("Response not echoed:\n%s", out.String())
	}
}

func TestSessionClickButton(t *testing.T) {
	client := &scriptedClient{replies: map[string][]chat.Message{
		"/menu": {{
			Text: "Choose:",
			Keyboard: [][]chat.Button{
				{{Text: "Settings", Data: []byte("settings")}, {Text: "Help", Data: []byte("help")}},
			},
		}},
	}}
	session, out := newTestSession(client, "/menu\n/click 1\n/quit\n")

	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "[0] Settings") || !strings.Contains(output, "[1] Help") {
		t.Errorf("Buttons not listed:\n%s", output)
	}
	if !strings.Contains(output, `clicked "Help"`) {
		t.Errorf("Click not reported:\n%s", output)
	}
	if len(client.clicked) != 1 || client.clicked[0] != "Help" {
		t.Errorf("Unexpected clicks: %v", client.clicked)
	}
}

func TestSessionClickWithoutButtons(t *testing.T) {
	client := &scriptedClient{}
	session, out := newTestSession(client, "/click 0\n/quit\n")

	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if !strings.Contains(out.String(), "no message with buttons yet") {
		t.Errorf("Missing guard message:\n%s", out.String())
	}
}

func TestSessionEOFEndsLoop(t *testing.T) {
	client := &scriptedClient{}
	session, _ := newTestSession(client, "")

	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Session should end cleanly at EOF: %v", err)
	}
}

func TestSessionNoResponse(t *testing.T) {
	client := &scriptedClient{}
	session, out := newTestSession(client, "/void\n/quit\n")

	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if !strings.Contains(out.String(), "(no response)") {
		t.Errorf("Missing no-response marker:\n%s", out.String())
	}
}
