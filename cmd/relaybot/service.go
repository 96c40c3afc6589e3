package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// Restarting a crashed bot is left to the service manager; relaybot itself
// exits as soon as the listener or the liveness server stops.

const (
	serviceName  = "relaybot"
	launchdLabel = "com.relaybot.bot"
)

func installServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install relaybot as a user service (launchd/systemd)",
		Long: `Writes a service definition that runs "relaybot run" from the current
directory and restarts it when it exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			def := serviceDef{
				Exec:    execPath,
				Args:    runArgs(),
				WorkDir: workDir,
			}

			switch runtime.GOOS {
			case "darwin":
				return installLaunchd(cmd, def)
			case "linux":
				return installSystemd(cmd, def)
			default:
				return fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", runtime.GOOS)
			}
		},
	}
}

func uninstallServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the relaybot user service",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := servicePath(runtime.GOOS)
			if err != nil {
				return err
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove service file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service uninstalled: %s\n", path)
			return nil
		},
	}
}

type serviceDef struct {
	Exec    string
	Args    []string
	WorkDir string
}

// runArgs rebuilds the command line for the supervised process. Paths are
// made absolute because the service manager starts from another directory.
func runArgs() []string {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", absPath(configPath))
	}
	if envFile != "" {
		args = append(args, "--env-file", absPath(envFile))
	}
	return args
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func servicePath(goos string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist"), nil
	case "linux":
		return filepath.Join(home, ".config", "systemd", "user", serviceName+".service"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

func installLaunchd(cmd *cobra.Command, def serviceDef) error {
	path, err := servicePath("darwin")
	if err != nil {
		return err
	}
	logDir := filepath.Join(def.WorkDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	if err := writeServiceFile(path, launchdPlist(def, logDir)); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Service installed: %s\n", path)
	fmt.Fprintf(w, "To start: launchctl load %s\n", path)
	fmt.Fprintf(w, "To stop:  launchctl unload %s\n", path)
	return nil
}

func installSystemd(cmd *cobra.Command, def serviceDef) error {
	path, err := servicePath("linux")
	if err != nil {
		return err
	}
	if err := writeServiceFile(path, systemdUnit(def)); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Service installed: %s\n", path)
	fmt.Fprintf(w, "To start:  systemctl --user start %s\n", serviceName)
	fmt.Fprintf(w, "To enable: systemctl --user enable %s\n", serviceName)
	fmt.Fprintf(w, "To stop:   systemctl --user stop %s\n", serviceName)
	return nil
}

func writeServiceFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func systemdUnit(def serviceDef) string {
	r := strings.NewReplacer(
		"{{EXEC}}", strings.Join(append([]string{def.Exec}, def.Args...), " "),
		"{{WORKDIR}}", def.WorkDir,
	)
	return r.Replace(systemdTemplate)
}

func launchdPlist(def serviceDef, logDir string) string {
	var args strings.Builder
	for _, a := range append([]string{def.Exec}, def.Args...) {
		fmt.Fprintf(&args, "        <string>%s</string>\n", a)
	}
	r := strings.NewReplacer(
		"{{LABEL}}", launchdLabel,
		"{{ARGS}}", strings.TrimSuffix(args.String(), "\n"),
		"{{WORKDIR}}", def.WorkDir,
		"{{LOG}}", filepath.Join(logDir, "relaybot.log"),
		"{{ERR_LOG}}", filepath.Join(logDir, "relaybot-error.log"),
	)
	return r.Replace(launchdTemplate)
}

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{LABEL}}</string>
    <key>ProgramArguments</key>
    <array>
{{ARGS}}
    </array>
    <key>WorkingDirectory</key>
    <string>{{WORKDIR}}</string>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{LOG}}</string>
    <key>StandardErrorPath</key>
    <string>{{ERR_LOG}}</string>
</dict>
</plist>`

const systemdTemplate = `[Unit]
Description=relaybot Telegram media relay
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
WorkingDirectory={{WORKDIR}}
ExecStart={{EXEC}}
Restart=always
RestartSec=5

[Install]
WantedBy=default.target`
