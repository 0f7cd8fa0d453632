package config

import (
	"context"
	"errors"

	"github.com/sethvargo/go-envconfig"
)

// DiscordConfig carries the bot's gateway credentials. While
// developing, commands are registered against a single guild so they
// show up instantly; RunBotGlobally lifts that restriction.
type DiscordConfig struct {
	Token          string `env:"DISCORD_TOKEN, required"`
	GuildID        string `env:"DISCORD_GUILD_ID"`
	RunBotGlobally bool   `env:"DISCORD_RUN_BOT_GLOBALLY"`
}

// ErrNoGuild rejects a config that would register commands globally by
// accident.
var ErrNoGuild = errors.New("set DISCORD_GUILD_ID or opt in to global commands with DISCORD_RUN_BOT_GLOBALLY=true")

func NewDiscordConfigFromEnv() (*DiscordConfig, error) {
	var cfg DiscordConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.GuildID == "" && !cfg.RunBotGlobally {
		return nil, ErrNoGuild
	}
	return &cfg, nil
}
