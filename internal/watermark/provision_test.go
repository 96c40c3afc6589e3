package watermark

import (
	"context"
	"errors"
	"image/color"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	data, err := EncodePNG(solid(6, 3, color.RGBA{10, 20, 30, 255}))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestProvisioner_DownloadsWhenMissing(t *testing.T) {
	body := pngBytes(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(body)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "assets", "logo.png")
	p := NewProvisioner(ProvisionerConfig{URL: srv.URL, Path: path, Client: srv.Client(), Logger: testLogger()})

	logo, err := p.Provision(context.Background())
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if logo.Image().Bounds().Dx() != 6 {
		t.Errorf("unexpected logo width %d", logo.Image().Bounds().Dx())
	}
	if logo.Path() != path {
		t.Errorf("path: got %q", logo.Path())
	}

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(saved) != string(body) {
		t.Error("saved file differs from response body")
	}

	// Second call must not hit the network.
	if err := p.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 download, got %d", hits.Load())
	}
}

func TestProvisioner_Non200KeepsNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "logo.png")
	p := NewProvisioner(ProvisionerConfig{URL: srv.URL, Path: path, Client: srv.Client(), Logger: testLogger()})

	if err := p.Ensure(context.Background()); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("logo file should not exist, stat err = %v", err)
	}
	if _, err := p.Provision(context.Background()); err == nil {
		t.Error("provision should fail when no logo could be loaded")
	}
}

func TestProvisioner_FailedDownloadFallsBackToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(path, pngBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewProvisioner(ProvisionerConfig{URL: "http://127.0.0.1:1/unreachable", Path: path, Logger: testLogger()})

	if _, err := p.Provision(context.Background()); err != nil {
		t.Fatalf("existing logo should load: %v", err)
	}
}

func TestLoadLogo_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	os.WriteFile(path, []byte("not an image"), 0o644)
	if _, err := LoadLogo(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewLogo_Empty(t *testing.T) {
	if _, err := NewLogo(nil); !errors.Is(err, ErrEmptyLogo) {
		t.Errorf("expected ErrEmptyLogo, got %v", err)
	}
}
