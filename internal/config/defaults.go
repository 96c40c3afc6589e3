package config

import "relaybot/internal/watermark"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Telegram: TelegramConfig{
			PollTimeout: 30,
		},
		Logo: LogoConfig{
			URL:             watermark.DefaultLogoURL,
			Path:            watermark.DefaultLogoPath,
			DownloadTimeout: 30,
		},
		Photo: PhotoConfig{
			MaxWidth: 1080,
		},
		Liveness: LivenessConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Message: "Telegram Bot is running on Go server!",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Host:     "127.0.0.1",
			Port:     9090,
			Endpoint: "/metrics",
		},
	}
}
