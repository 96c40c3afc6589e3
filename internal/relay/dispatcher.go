// Package relay turns inbound media messages into branded republished ones.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"relaybot/internal/caption"
	"relaybot/internal/domain"
	"relaybot/internal/metrics"
	"relaybot/internal/watermark"

	"github.com/google/uuid"
)

// StartReply answers the /start command.
const StartReply = "Bot is running and ready to process media sent by anyone."

// ErrLogoUnavailable means a photo arrived but no logo was provisioned.
var ErrLogoUnavailable = errors.New("relay: watermark logo unavailable")

// Sender republishes content to the chat platform.
type Sender interface {
	SendPhoto(ctx context.Context, chatID int64, image []byte, caption string) error
	SendVideo(ctx context.Context, chatID int64, fileID, caption string) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	SendVoice(ctx context.Context, chatID int64, fileID, caption string) error
	SendAnimation(ctx context.Context, chatID int64, fileID, caption string) error
	Reply(ctx context.Context, chatID int64, text string) error
}

// PhotoFetcher downloads the raw bytes of a platform file.
type PhotoFetcher interface {
	FetchFile(ctx context.Context, fileID string) ([]byte, error)
}

// Dispatcher handles one inbound item at a time. It holds no per-message
// state, so a single instance may serve concurrent callers.
type Dispatcher struct {
	sender   Sender
	fetcher  PhotoFetcher
	logo     *watermark.Logo
	brand    caption.Brand
	maxWidth int
	logger   *slog.Logger
}

type Config struct {
	Sender  Sender
	Fetcher PhotoFetcher
	// Logo may be nil; photos then fail with ErrLogoUnavailable while other
	// media keeps flowing.
	Logo     *watermark.Logo
	Brand    caption.Brand
	MaxWidth int // photos wider than this are scaled down first; 0 disables
	Logger   *slog.Logger
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Brand == (caption.Brand{}) {
		cfg.Brand = caption.DefaultBrand()
	}
	return &Dispatcher{
		sender:   cfg.Sender,
		fetcher:  cfg.Fetcher,
		logo:     cfg.Logo,
		brand:    cfg.Brand,
		maxWidth: cfg.MaxWidth,
		logger:   cfg.Logger,
	}
}

// Handle implements domain.MessageHandler.
// Items without media or without a caption are ignored silently.
func (d *Dispatcher) Handle(ctx context.Context, item domain.MediaItem) error {
	metrics.MessagesReceived.Inc()

	if item.Command == "start" {
		return d.sender.Reply(ctx, item.ChatID, StartReply)
	}
	if item.Media == nil || !item.HasCaption() {
		metrics.MessagesSkipped.Inc()
		d.logger.Debug("message skipped", "chat_id", item.ChatID, "has_media", item.Media != nil)
		return nil
	}

	start := time.Now()
	defer metrics.HandleLatency.Since(start)

	logger := d.logger.With("job", uuid.NewString(), "chat_id", item.ChatID, "kind", item.Media.Kind())

	out, err := d.Render(ctx, item)
	if err != nil {
		metrics.MessagesFailed.Inc()
		return err
	}
	if err := d.send(ctx, item, out); err != nil {
		metrics.MessagesFailed.Inc()
		return fmt.Errorf("send %s: %w", out.Kind, err)
	}

	metrics.Relayed(string(out.Kind)).Inc()
	if out.Kind == domain.KindPhoto {
		metrics.PhotosWatermarked.Inc()
	}
	logger.Info("message relayed", "image_bytes", len(out.Image), "took", time.Since(start))
	return nil
}

// Render builds the republished caption, plus the watermarked PNG for photos.
func (d *Dispatcher) Render(ctx context.Context, item domain.MediaItem) (domain.RenderedOutput, error) {
	if item.Media == nil {
		return domain.RenderedOutput{}, errors.New("relay: item has no media")
	}
	out := domain.RenderedOutput{
		Kind:    item.Media.Kind(),
		Caption: d.brand.Format(caption.Parse(item.Caption)),
	}

	if photo, ok := item.Media.(domain.Photo); ok {
		img, err := d.watermark(ctx, photo)
		if err != nil {
			return domain.RenderedOutput{}, err
		}
		out.Image = img
	}
	return out, nil
}

func (d *Dispatcher) watermark(ctx context.Context, photo domain.Photo) ([]byte, error) {
	if d.logo == nil {
		return nil, ErrLogoUnavailable
	}
	if d.fetcher == nil {
		return nil, errors.New("relay: no photo fetcher configured")
	}

	data, err := d.fetcher.FetchFile(ctx, photo.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch photo: %w", err)
	}
	src, _, err := watermark.Decode(data)
	if err != nil {
		return nil, err
	}

	composed, err := d.logo.Apply(watermark.FitWidth(src, d.maxWidth))
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	return watermark.EncodePNG(composed)
}

func (d *Dispatcher) send(ctx context.Context, item domain.MediaItem, out domain.RenderedOutput) error {
	switch m := item.Media.(type) {
	case domain.Photo:
		return d.sender.SendPhoto(ctx, item.ChatID, out.Image, out.Caption)
	case domain.Video:
		return d.sender.SendVideo(ctx, item.ChatID, m.ID, out.Caption)
	case domain.Document:
		return d.sender.SendDocument(ctx, item.ChatID, m.ID, out.Caption)
	case domain.Voice:
		return d.sender.SendVoice(ctx, item.ChatID, m.ID, out.Caption)
	case domain.Animation:
		return d.sender.SendAnimation(ctx, item.ChatID, m.ID, out.Caption)
	default:
		return fmt.Errorf("relay: unsupported media %T", m)
	}
}
