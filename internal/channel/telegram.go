package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"relaybot/internal/domain"
	"relaybot/internal/relay"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultPollTimeout = 30
	photoFileName      = "photo.png"
	maxFileBytes       = 20 << 20 // Bot API download limit
)

var (
	_ domain.Channel     = (*Telegram)(nil)
	_ relay.Sender       = (*Telegram)(nil)
	_ relay.PhotoFetcher = (*Telegram)(nil)
)

// Telegram is the chat platform adapter: it long-polls for updates, hands
// them to a domain.MessageHandler and implements the outbound calls the
// relay needs.
type Telegram struct {
	token        string
	pollTimeout  int
	debug        bool
	apiEndpoint  string
	fileEndpoint string

	client *http.Client
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

type TelegramConfig struct {
	Token       string
	PollTimeout int // seconds
	Debug       bool
	Client      *http.Client
	Logger      *slog.Logger

	// Endpoint overrides, in tgbotapi format ("https://host/bot%s/%s").
	APIEndpoint  string
	FileEndpoint string
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.FileEndpoint == "" {
		cfg.FileEndpoint = tgbotapi.FileEndpoint
	}
	return &Telegram{
		token:        cfg.Token,
		pollTimeout:  cfg.PollTimeout,
		debug:        cfg.Debug,
		apiEndpoint:  cfg.APIEndpoint,
		fileEndpoint: cfg.FileEndpoint,
		client:       cfg.Client,
		logger:       cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Connect authenticates against the Bot API. Start calls it when needed;
// calling it up front lets a bad token fail before anything else starts.
func (t *Telegram) Connect() error {
	if t.bot != nil {
		return nil
	}
	if strings.TrimSpace(t.token) == "" {
		return errors.New("telegram bot init: empty token")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.apiEndpoint, t.client)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	bot.Debug = t.debug
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)
	return nil
}

// Start polls for updates and feeds them to handler one at a time until ctx
// is cancelled. Errors from the handler are logged and never stop the loop.
func (t *Telegram) Start(ctx context.Context, handler domain.MessageHandler) error {
	if err := t.Connect(); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	updates := t.bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started", "timeout", t.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			t.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram update channel closed")
			}
			t.handleUpdate(ctx, handler, update)
		}
	}
}

// Stop is a no-op: polling ends when Start's context is cancelled, and
// StopReceivingUpdates panics if called twice.
func (t *Telegram) Stop() error {
	return nil
}

func (t *Telegram) handleUpdate(ctx context.Context, handler domain.MessageHandler, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	item := ToMediaItem(msg)
	if err := handler.Handle(ctx, item); err != nil {
		t.logger.Error("message processing failed",
			"chat_id", item.ChatID,
			"message_id", item.MessageID,
			"err", err,
		)
	}
}

// ToMediaItem converts a Telegram message into the relay's view of it.
// Animations are checked before documents because Telegram fills both
// fields for GIFs.
func ToMediaItem(msg *tgbotapi.Message) domain.MediaItem {
	item := domain.MediaItem{
		MessageID: msg.MessageID,
		Caption:   msg.Caption,
	}
	if msg.Chat != nil {
		item.ChatID = msg.Chat.ID
	}
	if msg.From != nil {
		item.SenderID = msg.From.ID
	}
	if msg.IsCommand() {
		item.Command = msg.Command()
	}

	switch {
	case len(msg.Photo) > 0:
		item.Media = domain.Photo{ID: largestPhoto(msg.Photo).FileID}
	case msg.Video != nil:
		item.Media = domain.Video{ID: msg.Video.FileID}
	case msg.Animation != nil:
		item.Media = domain.Animation{ID: msg.Animation.FileID}
	case msg.Document != nil:
		item.Media = domain.Document{ID: msg.Document.FileID}
	case msg.Voice != nil:
		item.Media = domain.Voice{ID: msg.Voice.FileID}
	}
	return item
}

// largestPhoto picks the biggest rendition; on ties the later one wins,
// matching Telegram's ascending order.
func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height >= best.Width*best.Height {
			best = s
		}
	}
	return best
}

// --- relay.Sender ---

func (t *Telegram) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.bot == nil {
		return errors.New("telegram: not connected")
	}
	_, err := t.bot.Send(c)
	return err
}

func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, image []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: photoFileName, Bytes: image})
	photo.Caption = caption
	return t.send(ctx, photo)
}

func (t *Telegram) SendVideo(ctx context.Context, chatID int64, fileID, caption string) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(fileID))
	video.Caption = caption
	return t.send(ctx, video)
}

func (t *Telegram) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	return t.send(ctx, doc)
}

func (t *Telegram) SendVoice(ctx context.Context, chatID int64, fileID, caption string) error {
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileID(fileID))
	voice.Caption = caption
	return t.send(ctx, voice)
}

func (t *Telegram) SendAnimation(ctx context.Context, chatID int64, fileID, caption string) error {
	anim := tgbotapi.NewAnimation(chatID, tgbotapi.FileID(fileID))
	anim.Caption = caption
	return t.send(ctx, anim)
}

func (t *Telegram) Reply(ctx context.Context, chatID int64, text string) error {
	return t.send(ctx, tgbotapi.NewMessage(chatID, text))
}

// --- relay.PhotoFetcher ---

// FetchFile resolves fileID through getFile and downloads its contents.
func (t *Telegram) FetchFile(ctx context.Context, fileID string) ([]byte, error) {
	if t.bot == nil {
		return nil, errors.New("telegram: not connected")
	}
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}

	url := fmt.Sprintf(t.fileEndpoint, t.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build file request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxFileBytes {
		return nil, fmt.Errorf("download file: larger than %d bytes", maxFileBytes)
	}
	return data, nil
}
