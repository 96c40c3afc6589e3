package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"relaybot/internal/channel"
	"relaybot/internal/httpx"
	"relaybot/internal/liveness"
	"relaybot/internal/metrics"
	"relaybot/internal/relay"
	"relaybot/internal/watermark"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot listener and the liveness server",
		Long:  "Provisions the logo, connects to Telegram and serves the liveness endpoint. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireToken(); err != nil {
		logger.Error("cannot start", "err", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logo := provisionLogo(ctx)

	// Long polls hold the request open for PollTimeout seconds.
	pollClient := httpx.SharedClient(time.Duration(cfg.Telegram.PollTimeout+10) * time.Second)
	tg := channel.NewTelegram(channel.TelegramConfig{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout,
		Debug:       cfg.Telegram.Debug,
		Client:      pollClient,
		Logger:      logger,
	})
	if err := tg.Connect(); err != nil {
		logger.Error("cannot start", "err", err)
		return err
	}

	dispatcher := relay.NewDispatcher(relay.Config{
		Sender:   tg,
		Fetcher:  tg,
		Logo:     logo,
		Brand:    cfg.CaptionBrand(),
		MaxWidth: cfg.Photo.MaxWidth,
		Logger:   logger,
	})

	live := liveness.NewServer(liveness.Config{
		Host:    cfg.Liveness.Host,
		Port:    cfg.Liveness.Port,
		Message: cfg.Liveness.Message,
		Logger:  logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(supervise(gctx, "telegram listener", func(ctx context.Context) error {
		return tg.Start(ctx, dispatcher)
	}))
	g.Go(supervise(gctx, "liveness server", live.Start))
	if cfg.Metrics.Enabled {
		addr := net.JoinHostPort(cfg.Metrics.Host, strconv.Itoa(cfg.Metrics.Port))
		g.Go(supervise(gctx, "metrics server", func(ctx context.Context) error {
			return metrics.Serve(ctx, addr, cfg.Metrics.Endpoint, logger)
		}))
	}

	logger.Info("relaybot started", "version", version)
	err := g.Wait()
	if ctx.Err() != nil {
		logger.Info("shutdown complete")
		return nil
	}
	logger.Error("relaybot stopped", "err", err)
	return err
}

// provisionLogo never fails the startup: without a logo photos are rejected
// one by one while every other media kind still flows.
func provisionLogo(ctx context.Context) *watermark.Logo {
	p := watermark.NewProvisioner(watermark.ProvisionerConfig{
		URL:    cfg.Logo.URL,
		Path:   cfg.Logo.Path,
		Client: httpx.SharedClient(time.Duration(cfg.Logo.DownloadTimeout) * time.Second),
		Logger: logger,
	})
	logo, err := p.Provision(ctx)
	if err != nil {
		logger.Error("logo unavailable, photos will not be relayed", "path", p.Path(), "err", err)
		return nil
	}
	bounds := logo.Image().Bounds()
	logger.Info("logo loaded", "path", logo.Path(), "width", bounds.Dx(), "height", bounds.Dy())
	return logo
}

// errUnexpectedExit marks a task that returned without error while the
// process was still meant to be running.
var errUnexpectedExit = errors.New("exited unexpectedly")

// supervise adapts a blocking task for an errgroup. Any return before ctx is
// cancelled counts as a failure so the group tears everything down.
func supervise(ctx context.Context, name string, task func(context.Context) error) func() error {
	return func() error {
		err := task(ctx)
		if ctx.Err() != nil {
			logger.Info("task stopped", "task", name)
			return nil
		}
		if err == nil {
			err = errUnexpectedExit
		}
		logger.Error("task exited", "task", name, "err", err)
		return fmt.Errorf("%s: %w", name, err)
	}
}
