// Package channel implements the user-facing interfaces: Telegram polling,
// an interactive terminal, and batch file processing. Channels publish
// inbound turns on the message bus and render the outbound replies.
package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"seekbot/internal/domain"
	"seekbot/internal/speech"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxOptionLen   = 30
	telegramMaxSendRetries = 3
)

// Telegram implements domain.Channel for the Telegram Bot API. Document
// options are rendered as inline keyboard buttons whose callback data is
// the option's selector command, so a tap comes back as a command turn.
type Telegram struct {
	token     string
	allowFrom []int64 // allowed user IDs (empty = allow all)
	parseMode string

	bot        *tgbotapi.BotAPI
	bus        domain.MessageBus
	recognizer speech.Recognizer
	synth      speech.Synthesizer
	logger     *slog.Logger

	// voiceUsers remembers which chats spoke their last turn so the reply
	// can be synthesized back as audio. Written by the polling goroutine
	// and read by the outbound handler, so it needs the mutex.
	voiceMu    sync.Mutex
	voiceUsers map[int64]bool
}

type TelegramConfig struct {
	Token      string
	AllowFrom  []string // user IDs as strings
	ParseMode  string
	Recognizer speech.Recognizer  // optional, enables voice turns
	Synth      speech.Synthesizer // optional, enables spoken replies
	Logger     *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	return &Telegram{
		token:      cfg.Token,
		allowFrom:  allowed,
		parseMode:  cfg.ParseMode,
		recognizer: cfg.Recognizer,
		synth:      cfg.Synth,
		logger:     cfg.Logger,
		voiceUsers: make(map[int64]bool),
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	bus.OnOutbound("telegram", func(msg domain.Message) {
		chatID, err := strconv.ParseInt(msg.UserID, 10, 64)
		if err != nil {
			t.logger.Error("invalid chat ID for telegram outbound", "chatID", msg.UserID, "err", err)
			return
		}
		t.render(ctx, chatID, msg)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled, and
// StopReceivingUpdates panics when called twice.
func (t *Telegram) Stop() error { return nil }

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Option taps arrive as callback queries carrying the selector command.
	if update.CallbackQuery != nil {
		t.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID
	if !t.isAllowed(msg.From.ID) {
		t.logger.Warn("message from unauthorized user",
			"user_id", msg.From.ID,
			"username", msg.From.UserName,
		)
		return
	}

	text := msg.Text
	voice := false
	if msg.Voice != nil {
		transcript, err := t.transcribeVoice(ctx, msg.Voice)
		if err != nil {
			t.logger.Error("voice transcription failed", "err", err)
			t.sendMessage(chatID, "Sorry, I could not understand the audio.")
			return
		}
		text = transcript
		voice = true
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	t.setVoiceTurn(chatID, voice)

	// Show typing indicator while the turn is processed.
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Request(typing)

	inbound := domain.NewInbound("telegram", strconv.FormatInt(chatID, 10), text)
	if voice && !inbound.IsCommand() {
		inbound.Info.Type = domain.MsgTypeVoice
	}
	t.bus.Publish(inbound)
}

// handleCallback acknowledges an option tap and republishes its selector
// command as a new inbound turn.
func (t *Telegram) handleCallback(query *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := t.bot.Request(callback); err != nil {
		t.logger.Warn("callback ack failed", "err", err)
	}
	if query.Message == nil || query.Data == "" {
		return
	}
	if !t.isAllowed(query.From.ID) {
		return
	}

	chatID := query.Message.Chat.ID
	t.setVoiceTurn(chatID, false)
	t.bus.Publish(domain.NewInbound("telegram", strconv.FormatInt(chatID, 10), query.Data))
}

func (t *Telegram) setVoiceTurn(chatID int64, voice bool) {
	t.voiceMu.Lock()
	defer t.voiceMu.Unlock()
	t.voiceUsers[chatID] = voice
}

func (t *Telegram) wasVoiceTurn(chatID int64) bool {
	t.voiceMu.Lock()
	defer t.voiceMu.Unlock()
	return t.voiceUsers[chatID]
}

func (t *Telegram) transcribeVoice(ctx context.Context, voice *tgbotapi.Voice) (string, error) {
	if t.recognizer == nil {
		return "", fmt.Errorf("voice input is not configured")
	}
	url, err := t.bot.GetFileDirectURL(voice.FileID)
	if err != nil {
		return "", fmt.Errorf("resolve voice file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download voice file: status %d", resp.StatusCode)
	}
	return t.recognizer.Transcribe(ctx, resp.Body, "voice.ogg")
}

// render delivers one outbound message: an inline keyboard for options
// turns, synthesized audio when the user spoke, plain text otherwise.
func (t *Telegram) render(ctx context.Context, chatID int64, msg domain.Message) {
	if msg.Info.Type == domain.MsgTypeOptions && len(msg.Info.Options) > 0 {
		t.sendOptions(chatID, msg)
		return
	}

	if t.wasVoiceTurn(chatID) && t.synth != nil && msg.Response != "" {
		if err := t.sendVoice(ctx, chatID, msg.Response); err == nil {
			return
		} else {
			t.logger.Warn("voice reply failed, falling back to text", "err", err)
		}
	}
	t.sendMessage(chatID, msg.Response)
}

func (t *Telegram) sendOptions(chatID int64, msg domain.Message) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range msg.Info.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				truncateTitle(opt.Title, telegramMaxOptionLen), opt.Command),
		))
	}

	out := tgbotapi.NewMessage(chatID, msg.Response)
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := t.bot.Send(out); err != nil {
		t.logger.Error("failed to send options", "err", err)
	}
}

// truncateTitle bounds a button label, cutting on runes so a multi-byte
// character is never split mid-sequence.
func truncateTitle(title string, max int) string {
	r := []rune(title)
	if len(r) <= max {
		return title
	}
	return string(r[:max])
}

func (t *Telegram) sendVoice(ctx context.Context, chatID int64, text string) error {
	audio, err := t.synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	defer audio.Close()

	data, err := io.ReadAll(audio)
	if err != nil {
		return fmt.Errorf("read synthesized audio: %w", err)
	}
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileReader{
		Name:   "reply.mp3",
		Reader: bytes.NewReader(data),
	})
	_, err = t.bot.Send(voice)
	return err
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Telegram) sendMessage(chatID int64, text string) {
	// Telegram has a 4096 char limit per message.
	const maxLen = telegramMaxMsgLen
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			cutAt := strings.LastIndex(chunk[:maxLen], "\n")
			if cutAt < maxLen/2 {
				cutAt = maxLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}
		t.sendChunk(chatID, chunk)
	}
}

// sendChunk sends a single message chunk with retry and rate limit
// handling: Markdown first, plain text on parse errors, backoff on 429.
func (t *Telegram) sendChunk(chatID int64, text string) {
	const maxRetries = telegramMaxSendRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}
		errStr := err.Error()

		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}
		if attempt == 0 && msg.ParseMode != "" && strings.Contains(errStr, "can't parse entities") {
			continue
		}

		t.logger.Error("failed to send telegram message", "err", err, "attempt", attempt+1)
		return
	}
}
