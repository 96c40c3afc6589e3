package watermark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultLogoURL is where the branding logo is fetched from when no local copy exists.
const DefaultLogoURL = "https://file-to-link-nx-ccf8d5eda5c0.herokuapp.com/dl/678e7aea06473a030935a6d8"

// DefaultLogoPath is the local file the logo is cached in.
const DefaultLogoPath = "downloaded_logo.png"

// Provisioner makes sure the logo exists on local storage.
type Provisioner struct {
	url    string
	path   string
	client *http.Client
	logger *slog.Logger
}

type ProvisionerConfig struct {
	URL    string
	Path   string
	Client *http.Client
	Logger *slog.Logger
}

func NewProvisioner(cfg ProvisionerConfig) *Provisioner {
	if cfg.URL == "" {
		cfg.URL = DefaultLogoURL
	}
	if cfg.Path == "" {
		cfg.Path = DefaultLogoPath
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Provisioner{
		url:    cfg.URL,
		path:   cfg.Path,
		client: cfg.Client,
		logger: cfg.Logger,
	}
}

// Path returns the local logo path.
func (p *Provisioner) Path() string { return p.path }

// Ensure downloads the logo unless a file already exists at the local path.
func (p *Provisioner) Ensure(ctx context.Context) error {
	if _, err := os.Stat(p.path); err == nil {
		p.logger.Debug("logo already present", "path", p.path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat logo: %w", err)
	}
	return p.Fetch(ctx)
}

// Fetch downloads the logo and writes the response body verbatim to the local path.
func (p *Provisioner) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build logo request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("download logo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("download logo: unexpected status %d", resp.StatusCode)
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create logo directory: %w", err)
		}
	}

	// A partial download must never be visible at p.path.
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".logo-*")
	if err != nil {
		return fmt.Errorf("create temp logo: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write logo: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save logo: %w", err)
	}

	p.logger.Info("logo saved", "path", p.path, "bytes", n)
	return nil
}

// Provision ensures the logo is on disk and decodes it. A failed download is
// logged and ignored as long as an older copy can still be loaded.
func (p *Provisioner) Provision(ctx context.Context) (*Logo, error) {
	if err := p.Ensure(ctx); err != nil {
		p.logger.Warn("logo download failed", "url", p.url, "err", err)
	}
	return LoadLogo(p.path)
}
