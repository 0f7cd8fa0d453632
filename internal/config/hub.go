package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// HubConfig holds the playback behavior switches.
type HubConfig struct {
	ClientName            string `env:"CLIENT_NAME, default=encore"`
	Shards                int    `env:"SHARDS, default=1"`
	AutoPlay              bool   `env:"AUTO_PLAY, default=true"`
	DefaultSearchPlatform string `env:"DEFAULT_SEARCH_PLATFORM, default=yt"`
	AutoReplay            bool   `env:"AUTO_REPLAY, default=true"`
	AutoResume            bool   `env:"AUTO_RESUME, default=false"`
}

func NewHubConfigFromEnv() (*HubConfig, error) {
	var cfg HubConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
