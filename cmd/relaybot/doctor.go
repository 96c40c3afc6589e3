package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"relaybot/internal/channel"
	"relaybot/internal/httpx"
	"relaybot/internal/watermark"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the relaybot setup",
		Long: `Verifies the bot token, the watermark logo and the listening ports.
Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "relaybot doctor v%s\n", version)
			fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			var passed, failed, warned int
			pass := func(check, detail string) { printPass(w, check, detail); passed++ }
			fail := func(check, detail string) { printFail(w, check, detail); failed++ }
			warn := func(check, detail string) { printWarn(w, check, detail); warned++ }

			// 1. Config
			if configPath != "" {
				pass("Config file", configPath)
			} else {
				pass("Config file", "none (defaults + environment)")
			}

			// 2. Token
			if err := cfg.RequireToken(); err != nil {
				fail("Bot token", err.Error())
			} else {
				pass("Bot token", "present")
				if offline {
					warn("Bot API", "skipped (--offline)")
				} else {
					tg := channel.NewTelegram(channel.TelegramConfig{
						Token:  cfg.Telegram.Token,
						Client: httpx.SharedClient(10 * time.Second),
						Logger: logger,
					})
					if err := tg.Connect(); err != nil {
						fail("Bot API", err.Error())
					} else {
						pass("Bot API", "token accepted")
					}
				}
			}

			// 3. Logo
			logo, err := watermark.LoadLogo(cfg.Logo.Path)
			switch {
			case errors.Is(err, os.ErrNotExist):
				warn("Logo", fmt.Sprintf("not found at %s (downloaded on start)", cfg.Logo.Path))
			case err != nil:
				fail("Logo", err.Error())
			default:
				b := logo.Image().Bounds()
				pass("Logo", fmt.Sprintf("%s (%dx%d)", logo.Path(), b.Dx(), b.Dy()))
			}

			// 4. Ports
			if err := checkPort(cfg.Liveness.Host, cfg.Liveness.Port); err != nil {
				warn("Liveness port", fmt.Sprintf("port %d may be in use: %v", cfg.Liveness.Port, err))
			} else {
				pass("Liveness port", fmt.Sprintf(":%d available", cfg.Liveness.Port))
			}
			if cfg.Metrics.Enabled {
				if err := checkPort(cfg.Metrics.Host, cfg.Metrics.Port); err != nil {
					warn("Metrics port", fmt.Sprintf("port %d may be in use: %v", cfg.Metrics.Port, err))
				} else {
					pass("Metrics port", fmt.Sprintf(":%d available", cfg.Metrics.Port))
				}
			}

			fmt.Fprintf(w, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Fprintf(w, "\nPlease fix the failed checks before running relaybot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Fprintf(w, "\nrelaybot should work but consider fixing the warnings.\n")
			} else {
				fmt.Fprintf(w, "\nAll checks passed! relaybot is ready to run.\n")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "skip checks that need network access")
	return cmd
}

// checkPort reports whether host:port can be bound right now.
func checkPort(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [PASS] %-20s %s\n", check, detail)
}

func printFail(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [WARN] %-20s %s\n", check, detail)
}
