package chat

import (
	"errors"
	"testing"
)

func keyboardMessage() Message {
	return Message{
		Text: "Pick one",
		Keyboard: [][]Button{
			{{Text: "Yes", Data: []byte("confirm:yes")}, {Text: "No", Data: []byte("confirm:no")}},
			{{Text: "Help", URL: "https://example.com/help"}},
		},
	}
}

func TestButtonsFlattensRows(t *testing.T) {
	msg := keyboardMessage()
	buttons := msg.Buttons()
	if len(buttons) != 3 {
		t.Fatalf("Expected 3 buttons, got %d", len(buttons))
	}
	if buttons[2].Text != "Help" {
		t.Errorf("Expected last button 'Help', got %q", buttons[2].Text)
	}

	if got := (Message{}).Buttons(); got != nil {
		t.Errorf("Expected nil buttons for plain message, got %v", got)
	}
}

func TestFindButton(t *testing.T) {
	msg := keyboardMessage()

	tests := []struct {
		name     string
		ref      ButtonRef
		wantText string
		wantErr  bool
	}{
		{name: "by position", ref: ButtonRef{ByPosition: true, Row: 1, Col: 0}, wantText: "Help"},
		{name: "by position origin", ref: ButtonRef{ByPosition: true, Row: 0, Col: 0}, wantText: "Yes"},
		{name: "by position out of range", ref: ButtonRef{ByPosition: true, Row: 0, Col: 5}, wantErr: true},
		{name: "by position negative", ref: ButtonRef{ByPosition: true, Row: -1, Col: 0}, wantErr: true},
		{name: "by text", ref: ButtonRef{Text: "No"}, wantText: "No"},
		{name: "by text missing", ref: ButtonRef{Text: "Maybe"}, wantErr: true},
		{name: "by data", ref: ButtonRef{Data: []byte("confirm:yes")}, wantText: "Yes"},
		{name: "by data missing", ref: ButtonRef{Data: []byte("confirm:maybe")}, wantErr: true},
		{name: "empty ref", ref: ButtonRef{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			btn, err := FindButton(msg, tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrButtonNotFound) {
					t.Fatalf("Expected ErrButtonNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if btn.Text != tt.wantText {
				t.Errorf("Expected button %q, got %q", tt.wantText, btn.Text)
			}
		})
	}
}

func TestFindButtonNoKeyboard(t *testing.T) {
	_, err := FindButton(Message{Text: "plain"}, ButtonRef{Text: "Yes"})
	if !errors.Is(err, ErrButtonNotFound) {
		t.Fatalf("Expected ErrButtonNotFound, got %v", err)
	}
}

func TestFindButtonTextBeatsData(t *testing.T) {
	// Text and Data reference different buttons; text match wins.
	msg := keyboardMessage()
	btn, err := FindButton(msg, ButtonRef{Text: "No", Data: []byte("confirm:yes")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if btn.Text != "No" {
		t.Errorf("Expected text match to win, got %q", btn.Text)
	}
}
