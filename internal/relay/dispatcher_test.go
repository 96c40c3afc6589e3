package relay

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"relaybot/internal/caption"
	"relaybot/internal/domain"
	"relaybot/internal/watermark"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type sentCall struct {
	method  string
	chatID  int64
	fileID  string
	image   []byte
	caption string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sentCall
	err   error
}

func (f *fakeSender) record(c sentCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeSender) SendPhoto(_ context.Context, chatID int64, img []byte, caption string) error {
	return f.record(sentCall{method: "photo", chatID: chatID, image: img, caption: caption})
}
func (f *fakeSender) SendVideo(_ context.Context, chatID int64, id, caption string) error {
	return f.record(sentCall{method: "video", chatID: chatID, fileID: id, caption: caption})
}
func (f *fakeSender) SendDocument(_ context.Context, chatID int64, id, caption string) error {
	return f.record(sentCall{method: "document", chatID: chatID, fileID: id, caption: caption})
}
func (f *fakeSender) SendVoice(_ context.Context, chatID int64, id, caption string) error {
	return f.record(sentCall{method: "voice", chatID: chatID, fileID: id, caption: caption})
}
func (f *fakeSender) SendAnimation(_ context.Context, chatID int64, id, caption string) error {
	return f.record(sentCall{method: "animation", chatID: chatID, fileID: id, caption: caption})
}
func (f *fakeSender) Reply(_ context.Context, chatID int64, text string) error {
	return f.record(sentCall{method: "reply", chatID: chatID, caption: text})
}

type fakeFetcher struct {
	data []byte
	err  error
	ids  []string
}

func (f *fakeFetcher) FetchFile(_ context.Context, fileID string) ([]byte, error) {
	f.ids = append(f.ids, fileID)
	return f.data, f.err
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func photoBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	data, err := watermark.EncodePNG(solid(w, h, color.White))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func redLogo(t *testing.T) *watermark.Logo {
	t.Helper()
	logo, err := watermark.NewLogo(solid(20, 10, color.RGBA{255, 0, 0, 255}))
	if err != nil {
		t.Fatal(err)
	}
	return logo
}

func TestHandle_PhotoEndToEnd(t *testing.T) {
	sender := &fakeSender{}
	fetcher := &fakeFetcher{data: photoBytes(t, 600, 400)}
	d := NewDispatcher(Config{Sender: sender, Fetcher: fetcher, Logo: redLogo(t), MaxWidth: 1080, Logger: testLogger()})

	err := d.Handle(context.Background(), domain.MediaItem{
		ChatID:  42,
		Media:   domain.Photo{ID: "big-photo"},
		Caption: "Title={Demo} https://t.me/x",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(sender.calls) != 1 || sender.calls[0].method != "photo" {
		t.Fatalf("expected one photo call, got %+v", sender.calls)
	}
	call := sender.calls[0]
	if call.chatID != 42 {
		t.Errorf("chat id: got %d", call.chatID)
	}
	if fetcher.ids[0] != "big-photo" {
		t.Errorf("fetched %v", fetcher.ids)
	}
	if !strings.Contains(call.caption, "Title - Demo") {
		t.Errorf("caption missing title: %q", call.caption)
	}
	if !strings.Contains(call.caption, caption.DefaultBrand().Connector+" https://t.me/x") {
		t.Errorf("caption missing link line: %q", call.caption)
	}

	img, format, err := watermark.Decode(call.image)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" {
		t.Errorf("format: got %s", format)
	}
	if img.Bounds().Dx() != 600 || img.Bounds().Dy() != 400 {
		t.Errorf("size: got %v", img.Bounds())
	}
	// Logo is 200x100 at x=200.
	r, g, _, _ := img.At(300, 50).RGBA()
	if r>>8 < 250 || g>>8 > 5 {
		t.Errorf("expected logo at top centre, got %v", img.At(300, 50))
	}
	r, g, _, _ = img.At(300, 150).RGBA()
	if r>>8 != 255 || g>>8 != 255 {
		t.Errorf("expected source below logo, got %v", img.At(300, 150))
	}
}

func TestHandle_PhotoDownscaledToMaxWidth(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(Config{
		Sender:   sender,
		Fetcher:  &fakeFetcher{data: photoBytes(t, 400, 200)},
		Logo:     redLogo(t),
		MaxWidth: 100,
		Logger:   testLogger(),
	})
	if err := d.Handle(context.Background(), domain.MediaItem{Media: domain.Photo{ID: "p"}, Caption: "x"}); err != nil {
		t.Fatal(err)
	}
	img, _, err := watermark.Decode(sender.calls[0].image)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("size: got %v", img.Bounds())
	}
}

func TestHandle_NonPhotoKindsResendFileID(t *testing.T) {
	tests := []struct {
		media  domain.Media
		method string
	}{
		{domain.Video{ID: "v1"}, "video"},
		{domain.Document{ID: "d1"}, "document"},
		{domain.Voice{ID: "vo1"}, "voice"},
		{domain.Animation{ID: "a1"}, "animation"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			sender := &fakeSender{}
			fetcher := &fakeFetcher{}
			d := NewDispatcher(Config{Sender: sender, Fetcher: fetcher, Logger: testLogger()})

			err := d.Handle(context.Background(), domain.MediaItem{
				ChatID: 7, Media: tt.media, Caption: "https://a.com https://b.com",
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(sender.calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(sender.calls))
			}
			c := sender.calls[0]
			if c.method != tt.method || c.fileID != tt.media.FileID() {
				t.Errorf("got %s(%s), want %s(%s)", c.method, c.fileID, tt.method, tt.media.FileID())
			}
			if !strings.Contains(c.caption, "(Part 2) https://b.com") {
				t.Errorf("caption: %q", c.caption)
			}
			if len(fetcher.ids) != 0 {
				t.Error("non-photo media must not be downloaded")
			}
		})
	}
}

func TestHandle_NoCaptionDoesNothing(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(Config{Sender: sender, Logger: testLogger()})

	if err := d.Handle(context.Background(), domain.MediaItem{Media: domain.Video{ID: "v"}}); err != nil {
		t.Fatal(err)
	}
	if err := d.Handle(context.Background(), domain.MediaItem{Caption: "text only"}); err != nil {
		t.Fatal(err)
	}
	if len(sender.calls) != 0 {
		t.Errorf("expected no calls, got %+v", sender.calls)
	}
}

func TestHandle_StartCommandReplies(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(Config{Sender: sender, Logger: testLogger()})

	if err := d.Handle(context.Background(), domain.MediaItem{ChatID: 3, Command: "start"}); err != nil {
		t.Fatal(err)
	}
	if len(sender.calls) != 1 || sender.calls[0].method != "reply" || sender.calls[0].caption != StartReply {
		t.Errorf("unexpected calls: %+v", sender.calls)
	}
}

func TestHandle_PhotoWithoutLogoFails(t *testing.T) {
	sender := &fakeSender{}
	fetcher := &fakeFetcher{data: photoBytes(t, 10, 10)}
	d := NewDispatcher(Config{Sender: sender, Fetcher: fetcher, Logger: testLogger()})

	err := d.Handle(context.Background(), domain.MediaItem{Media: domain.Photo{ID: "p"}, Caption: "hi"})
	if !errors.Is(err, ErrLogoUnavailable) {
		t.Fatalf("expected ErrLogoUnavailable, got %v", err)
	}
	if len(sender.calls) != 0 || len(fetcher.ids) != 0 {
		t.Error("nothing should be fetched or sent without a logo")
	}

	// Other media still flows.
	if err := d.Handle(context.Background(), domain.MediaItem{Media: domain.Voice{ID: "v"}, Caption: "hi"}); err != nil {
		t.Fatalf("voice should relay without a logo: %v", err)
	}
}

func TestHandle_FetchAndDecodeErrors(t *testing.T) {
	boom := errors.New("boom")
	d := NewDispatcher(Config{Sender: &fakeSender{}, Fetcher: &fakeFetcher{err: boom}, Logo: redLogo(t), Logger: testLogger()})
	if err := d.Handle(context.Background(), domain.MediaItem{Media: domain.Photo{ID: "p"}, Caption: "c"}); !errors.Is(err, boom) {
		t.Errorf("expected fetch error, got %v", err)
	}

	d = NewDispatcher(Config{Sender: &fakeSender{}, Fetcher: &fakeFetcher{data: []byte("junk")}, Logo: redLogo(t), Logger: testLogger()})
	if err := d.Handle(context.Background(), domain.MediaItem{Media: domain.Photo{ID: "p"}, Caption: "c"}); err == nil {
		t.Error("expected decode error")
	}
}

func TestHandle_SendErrorPropagates(t *testing.T) {
	boom := errors.New("telegram down")
	d := NewDispatcher(Config{Sender: &fakeSender{err: boom}, Logger: testLogger()})
	err := d.Handle(context.Background(), domain.MediaItem{Media: domain.Document{ID: "d"}, Caption: "c"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestRender_CustomBrand(t *testing.T) {
	d := NewDispatcher(Config{Brand: caption.Brand{Footer: "FOOT"}, Logger: testLogger()})
	out, err := d.Render(context.Background(), domain.MediaItem{Media: domain.Video{ID: "v"}, Caption: "Title={T}"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != domain.KindVideo || out.Image != nil {
		t.Errorf("unexpected output %+v", out)
	}
	if out.Caption != "Title - T\n\nFOOT" {
		t.Errorf("caption: %q", out.Caption)
	}
}
