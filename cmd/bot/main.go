package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/glizzus/encore/internal/config"
	"github.com/glizzus/encore/internal/handler"
	"github.com/glizzus/encore/internal/hub"
	"github.com/glizzus/encore/internal/store"
	"github.com/redis/go-redis/v9"
)

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}

	hubConfig, err := config.NewHubConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load hub config: %w", err)
	}

	nodesConfig, err := config.NewNodesConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load nodes config: %w", err)
	}
	nodeOptions, err := config.LoadNodesFile(nodesConfig.File)
	if err != nil {
		return fmt.Errorf("failed to load nodes file: %w", err)
	}

	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}

	var playerStore store.PlayerStore = store.NewMemoryStore()
	if redisConfig.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     redisConfig.Addr,
			Password: redisConfig.Password,
		})
		playerStore = store.NewRedisStore(client)
		slog.Info("Persisting players to redis", "addr", redisConfig.Addr)
	}

	session, err := handler.NewSession(discordConfig.Token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	h := hub.New(hub.Config{
		ClientName:            hubConfig.ClientName,
		Shards:                hubConfig.Shards,
		AutoPlay:              hubConfig.AutoPlay,
		DefaultSearchPlatform: hubConfig.DefaultSearchPlatform,
		AutoReplay:            hubConfig.AutoReplay,
		AutoResume:            hubConfig.AutoResume,
	}, handler.NewGateway(session), hub.WithStore(playerStore))

	ctx := context.Background()
	for _, opts := range nodeOptions {
		if _, err := h.Add(ctx, opts); err != nil {
			return fmt.Errorf("failed to register node %q: %w", opts.Name, err)
		}
	}

	handler.RegisterHandlers(session, handler.Handlers{
		Ready:             handler.ReadyLog,
		InteractionCreate: handler.MakeInteractionCreateHandler(h),
		VoiceServerUpdate: handler.MakeVoiceServerUpdateHandler(h),
		VoiceStateUpdate:  handler.MakeVoiceStateUpdateHandler(h),
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	defer func() {
		if err := h.Close(); err != nil {
			slog.Warn("failed to close hub", "error", err)
		}
	}()
	if err := h.Init(ctx, session.State.User.ID); err != nil {
		// Nodes that failed their first dial keep retrying in the
		// background, so a dead node at startup is not fatal.
		slog.Warn("Some nodes failed to connect", slog.Any("error", err))
	}

	if err := handler.EstablishCommands(session, discordConfig.GuildID); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}

	unsubscribe := handler.Announce(h, session)
	defer unsubscribe()

	restored, err := h.Restore(ctx)
	if err != nil {
		slog.Warn("Failed to restore players", slog.Any("error", err))
	} else if restored > 0 {
		slog.Info("Restored players from the store", "count", restored)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
