package telegram

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"gopkg.in/telebot.v4"

	"bot-tester/internal/chat"
)

func TestFromTelebotText(t *testing.T) {
	now := time.Now().Unix()
	msg := &telebot.Message{
		ID:       42,
		Text:     "Welcome to the bot!",
		Unixtime: now,
	}

	got := fromTelebot(msg, false)
	if got.ID != "42" {
		t.Errorf("Expected ID '42', got %q", got.ID)
	}
	if got.Text != "Welcome to the bot!" {
		t.Errorf("Unexpected text: %q", got.Text)
	}
	if got.Outgoing {
		t.Error("Incoming message flagged as outgoing")
	}
	if got.HasMedia {
		t.Error("Text message flagged as media")
	}
	if got.Time.Unix() != now {
		t.Errorf("Timestamp not carried: %v", got.Time)
	}
}

func TestFromTelebotCaptionFallback(t *testing.T) {
	msg := &telebot.Message{
		ID:      7,
		Caption: "photo caption",
		Photo:   &telebot.Photo{},
	}

	got := fromTelebot(msg, false)
	if got.Text != "photo caption" {
		t.Errorf("Expected caption as text, got %q", got.Text)
	}
	if !got.HasMedia {
		t.Error("Photo message should be flagged as media")
	}
}

func TestFromTelebotOutgoing(t *testing.T) {
	got := fromTelebot(&telebot.Message{ID: 1, Text: "/start"}, true)
	if !got.Outgoing {
		t.Error("Sent message should be flagged as outgoing")
	}
}

func TestFromTelebotKeyboard(t *testing.T) {
	msg := &telebot.Message{
		ID:   9,
		Text: "Choose an option:",
		ReplyMarkup: &telebot.ReplyMarkup{
			InlineKeyboard: [][]telebot.InlineButton{
				{
					{Text: "Settings", Data: "settings"},
					{Text: "Help", Data: "help"},
				},
				{
					{Text: "Docs", URL: "https://example.com/docs"},
				},
			},
		},
	}

	got := fromTelebot(msg, false)
	if len(got.Keyboard) != 2 {
		t.Fatalf("Expected 2 keyboard rows, got %d", len(got.Keyboard))
	}
	if len(got.Keyboard[0]) != 2 || len(got.Keyboard[1]) != 1 {
		t.Fatalf("Unexpected row sizes: %d, %d", len(got.Keyboard[0]), len(got.Keyboard[1]))
	}

	settings := got.Keyboard[0][0]
	if settings.Text != "Settings" || string(settings.Data) != "settings" {
		t.Errorf("Unexpected button: %+v", settings)
	}

	docs := got.Keyboard[1][0]
	if docs.URL != "https://example.com/docs" {
		t.Errorf("URL not carried: %+v", docs)
	}
	if len(docs.Data) != 0 {
		t.Errorf("URL button should have no callback payload: %+v", docs)
	}

	if len(got.Buttons()) != 3 {
		t.Errorf("Expected 3 flattened buttons, got %d", len(got.Buttons()))
	}
}

func TestOperationsBeforeConnect(t *testing.T) {
	c := &Client{}

	if err := c.SendText(context.Background(), "/start"); !errors.Is(err, chat.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected from SendText, got %v", err)
	}
	if _, err := c.RecentMessages(context.Background(), 10); !errors.Is(err, chat.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected from RecentMessages, got %v", err)
	}
	if err := c.ClickButton(context.Background(), chat.Message{}, chat.ButtonRef{}); !errors.Is(err, chat.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected from ClickButton, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on a disconnected client should be a no-op, got %v", err)
	}
}

func TestFromTelebotEditedMessageTime(t *testing.T) {
	sent := time.Now().Add(-time.Minute)
	edited := time.Now()
	msg := &telebot.Message{
		ID:       42,
		Text:     "updated text",
		Unixtime: sent.Unix(),
		LastEdit: edited.Unix(),
	}

	got := fromTelebot(msg, false)
	if got.Time.Unix() != edited.Unix() {
		t.Errorf("Edited message should carry its edit time, got %v", got.Time)
	}
}

func TestAppendReplacesEditedMessage(t *testing.T) {
	c := &Client{connected: true}

	c.append(chat.Message{ID: "42", Text: "v1", Time: time.Now()})
	c.append(chat.Message{ID: "43", Text: "other", Time: time.Now()})
	c.append(chat.Message{ID: "42", Text: "v2", Time: time.Now().Add(time.Second)})

	msgs, err := c.RecentMessages(context.Background(), 10)
	if err != nil {
		t.Fatalf("Failed to read messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Edit should replace in place, got %d messages", len(msgs))
	}
	if msgs[0].Text != "v2" {
		t.Errorf("Edit not applied, message text is %q", msgs[0].Text)
	}
	if msgs[1].ID != "43" {
		t.Errorf("Unrelated message disturbed: %+v", msgs[1])
	}
}

func TestConversationLogCap(t *testing.T) {
	c := &Client{connected: true}

	for i := 0; i < conversationLogCap+20; i++ {
		c.append(chat.Message{ID: strconv.Itoa(i), Time: time.Now()})
	}

	msgs, err := c.RecentMessages(context.Background(), conversationLogCap*2)
	if err != nil {
		t.Fatalf("Failed to read messages: %v", err)
	}
	if len(msgs) != conversationLogCap {
		t.Errorf("Expected log capped at %d, got %d", conversationLogCap, len(msgs))
	}
}

func TestRecentMessagesLimit(t *testing.T) {
	c := &Client{connected: true}
	for i := 0; i < 10; i++ {
		c.append(chat.Message{ID: strconv.Itoa(i), Text: "msg", Time: time.Now()})
	}

	msgs, err := c.RecentMessages(context.Background(), 3)
	if err != nil {
		t.Fatalf("Failed to read messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("Expected 3 messages, got %d", len(msgs))
	}
}
