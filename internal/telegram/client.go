package telegram

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"

	"bot-tester/internal/chat"
	"bot-tester/internal/config"
)

// conversationLogCap bounds the in-memory conversation log. The collector
// only ever asks for a small tail, so old messages can be discarded.
const conversationLogCap = 256

// Client drives one conversation with the target bot over the Telegram Bot
// API. It implements chat.Client.
//
// The harness account is itself a bot sharing a chat with the target bot.
// Incoming updates from that chat are appended to an in-memory log which
// backs RecentMessages; the conversation is treated as append-only, matching
// the polling model of the collector.
//
// The Bot API never delivers one bot's messages to another bot, so the log
// only fills when the observed counterpart sends as a user-mode account.
// Watching a true bot-to-bot conversation needs a user-client transport
// behind chat.Client instead.
type Client struct {
	cfg    config.TelegramConfig
	bot    *telebot.Bot
	chatID telebot.ChatID
	target string

	mu        sync.Mutex
	messages  []chat.Message
	connected bool
}

// NewClient creates a Telegram client from configuration. Connect must be
// called before any other operation.
func NewClient(cfg config.TelegramConfig, proxy config.ProxyConfig) (*Client, error) {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}

	if proxy.Enabled && proxy.URL != "" {
		log.Infof("Using proxy: %s", proxy.URL)
		proxyURL, err := url.Parse(proxy.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			IdleConnTimeout: 90 * time.Second,
		}
	}

	settings := telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: time.Duration(cfg.PollingTimeout) * time.Second},
		Client: httpClient,
	}

	bot, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Client{
		cfg:    cfg,
		bot:    bot,
		chatID: telebot.ChatID(cfg.ChatID),
		target: strings.TrimPrefix(cfg.TargetBot, "@"),
	}, nil
}

// Connect registers update handlers and starts the long poller. It returns
// once the poller is running; incoming messages from the target bot start
// accumulating in the conversation log immediately.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = true
	c.mu.Unlock()

	for _, endpoint := range []string{telebot.OnText, telebot.OnPhoto, telebot.OnDocument, telebot.OnSticker, telebot.OnEdited} {
		c.bot.Handle(endpoint, c.handleIncoming)
	}

	go c.bot.Start()

	log.Infof("Telegram client authorized as @%s, target bot @%s", c.bot.Me.Username, c.target)
	return nil
}

func (c *Client) handleIncoming(tc telebot.Context) error {
	msg := tc.Message()
	if msg == nil || msg.Chat == nil || msg.Chat.ID != int64(c.chatID) {
		return nil
	}
	if msg.Sender != nil && c.target != "" && msg.Sender.Username != c.target {
		return nil
	}

	c.append(fromTelebot(msg, false))
	return nil
}

// SendText sends a plain text message to the target chat. The sent message
// is recorded in the conversation log flagged as outgoing, so the collector
// never mistakes it for a bot reply.
func (c *Client) SendText(ctx context.Context, text string) error {
	if !c.isConnected() {
		return chat.ErrNotConnected
	}

	sent, err := c.bot.Send(c.chatID, text)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.append(fromTelebot(sent, true))
	log.Debugf("Sent message: %s", text)
	return nil
}

// RecentMessages returns up to limit of the newest conversation messages,
// oldest first.
func (c *Client) RecentMessages(ctx context.Context, limit int) ([]chat.Message, error) {
	if !c.isConnected() {
		return nil, chat.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := 0
	if limit > 0 && len(c.messages) > limit {
		start = len(c.messages) - limit
	}
	tail := make([]chat.Message, len(c.messages)-start)
	copy(tail, c.messages[start:])
	return tail, nil
}

// ClickButton activates an inline button on a received message.
//
// A Bot API account cannot press another bot's callback buttons, so the
// click is delivered by re-sending the button's callback payload as text.
// Most bots under test register their callback routes as commands as well;
// bots that do not need a user-client transport instead.
func (c *Client) ClickButton(ctx context.Context, msg chat.Message, ref chat.ButtonRef) error {
	if !c.isConnected() {
		return chat.ErrNotConnected
	}

	btn, err := chat.FindButton(msg, ref)
	if err != nil {
		return err
	}
	if len(btn.Data) == 0 {
		return fmt.Errorf("button %q has no callback payload: %w", btn.Text, chat.ErrButtonNotFound)
	}

	log.Debugf("Clicking button %q (payload %q)", btn.Text, string(btn.Data))
	return c.SendText(ctx, string(btn.Data))
}

// Close stops the long poller.
func (c *Client) Close() error {
	c.mu.Lock()
	connected := c.connected
	c.connected = false
	c.mu.Unlock()

	if connected {
		c.bot.Stop()
	}
	return nil
}

func (c *Client) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// append records a message in the conversation log. A message with a known ID
// replaces the previous version in place, so an edit never shows up as a
// second message.
func (c *Client) append(msg chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.messages {
		if c.messages[i].ID == msg.ID {
			c.messages[i] = msg
			return
		}
	}

	c.messages = append(c.messages, msg)
	if len(c.messages) > conversationLogCap {
		c.messages = c.messages[len(c.messages)-conversationLogCap:]
	}
}

// fromTelebot converts a telebot message into the transport-neutral model.
// Edited messages carry their edit time, not the original send time, so a
// post-click edit is still inside the click's collection window.
func fromTelebot(msg *telebot.Message, outgoing bool) chat.Message {
	ts := msg.Time()
	if msg.LastEdit != 0 {
		ts = time.Unix(msg.LastEdit, 0)
	}

	out := chat.Message{
		ID:       strconv.Itoa(msg.ID),
		Text:     msg.Text,
		Time:     ts,
		Outgoing: outgoing,
		HasMedia: msg.Photo != nil || msg.Document != nil || msg.Video != nil || msg.Sticker != nil,
	}
	if msg.Text == "" && msg.Caption != "" {
		out.Text = msg.Caption
	}

	if msg.ReplyMarkup != nil && len(msg.ReplyMarkup.InlineKeyboard) > 0 {
		out.Keyboard = make([][]chat.Button, 0, len(msg.ReplyMarkup.InlineKeyboard))
		for _, row := range msg.ReplyMarkup.InlineKeyboard {
			buttons := make([]chat.Button, 0, len(row))
			for _, btn := range row {
				b := chat.Button{Text: btn.Text, URL: btn.URL}
				if btn.Data != "" {
					b.Data = []byte(btn.Data)
				}
				buttons = append(buttons, b)
			}
			out.Keyboard = append(out.Keyboard, buttons)
		}
	}

	return out
}
