package ioc

import (
	"github.com/KNICEX/momentum-monitor/internal/config"
	"github.com/KNICEX/momentum-monitor/internal/service/notification"
	"github.com/KNICEX/momentum-monitor/internal/service/notification/discord"
)

func InitSink(cfg config.AlertsConfig) notification.Sink {
	if cfg.Sink == config.SinkConsole {
		return notification.NewConsoleSink()
	}
	return discord.NewSink(cfg.DiscordWebhookURL, discord.WithTimeout(cfg.WebhookTimeout))
}
