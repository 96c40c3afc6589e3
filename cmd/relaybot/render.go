package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/httpx"
	"relaybot/internal/relay"
	"relaybot/internal/watermark"

	"github.com/spf13/cobra"
)

// fileFetcher treats file ids as local paths so the relay pipeline can run
// offline against files on disk.
type fileFetcher struct{}

func (fileFetcher) FetchFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// discardSender satisfies relay.Sender for dry runs; render never sends.
type discardSender struct{}

func (discardSender) SendPhoto(context.Context, int64, []byte, string) error     { return nil }
func (discardSender) SendVideo(context.Context, int64, string, string) error     { return nil }
func (discardSender) SendDocument(context.Context, int64, string, string) error  { return nil }
func (discardSender) SendVoice(context.Context, int64, string, string) error     { return nil }
func (discardSender) SendAnimation(context.Context, int64, string, string) error { return nil }
func (discardSender) Reply(context.Context, int64, string) error                 { return nil }

func renderCmd() *cobra.Command {
	var imagePath, outPath string

	cmd := &cobra.Command{
		Use:   "render [caption]",
		Short: "Preview the republished caption and, optionally, a watermarked photo",
		Long: `Runs the relay pipeline locally without Telegram. The caption is taken from
the arguments or, when none are given, from stdin. With --image the photo is
watermarked with the configured logo and written to --out as PNG.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := captionInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			var logo *watermark.Logo
			var media domain.Media = domain.Document{ID: "preview"}
			if imagePath != "" {
				logo, err = watermark.LoadLogo(cfg.Logo.Path)
				if err != nil {
					return fmt.Errorf("%w: %v", relay.ErrLogoUnavailable, err)
				}
				media = domain.Photo{ID: imagePath}
			}

			d := relay.NewDispatcher(relay.Config{
				Sender:   discardSender{},
				Fetcher:  fileFetcher{},
				Logo:     logo,
				Brand:    cfg.CaptionBrand(),
				MaxWidth: cfg.Photo.MaxWidth,
				Logger:   logger,
			})
			out, err := d.Render(cmd.Context(), domain.MediaItem{Media: media, Caption: text})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out.Caption)
			if out.Image != nil {
				if err := os.WriteFile(outPath, out.Image, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				logger.Info("watermarked photo written", "path", outPath, "bytes", len(out.Image))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "photo to watermark")
	cmd.Flags().StringVarP(&outPath, "out", "o", "watermarked.png", "where the watermarked PNG is written")
	return cmd
}

func captionInput(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read caption: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func fetchLogoCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch-logo",
		Short: "Download the watermark logo to its local path",
		Long:  "Downloads the logo unless it already exists (use --force to replace it), then checks that it decodes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Logo.DownloadTimeout)*time.Second)
			defer cancel()

			p := watermark.NewProvisioner(watermark.ProvisionerConfig{
				URL:    cfg.Logo.URL,
				Path:   cfg.Logo.Path,
				Client: httpx.SharedClient(time.Duration(cfg.Logo.DownloadTimeout) * time.Second),
				Logger: logger,
			})
			fetch := p.Ensure
			if force {
				fetch = p.Fetch
			}
			if err := fetch(ctx); err != nil {
				return err
			}

			logo, err := watermark.LoadLogo(p.Path())
			if errors.Is(err, watermark.ErrEmptyLogo) {
				return fmt.Errorf("downloaded logo is empty: %w", err)
			}
			if err != nil {
				return err
			}
			b := logo.Image().Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "logo ready: %s (%dx%d)\n", logo.Path(), b.Dx(), b.Dy())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "download even if the logo already exists")
	return cmd
}
