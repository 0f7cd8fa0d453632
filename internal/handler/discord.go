package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/encore/internal/hub"
	"github.com/glizzus/encore/internal/voice"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type InteractionCreateHandler = func(*discordgo.Session, *discordgo.InteractionCreate)
type VoiceServerUpdateHandler = func(*discordgo.Session, *discordgo.VoiceServerUpdate)
type VoiceStateUpdateHandler = func(*discordgo.Session, *discordgo.VoiceStateUpdate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID)
}

// DiscordSession is the slice of a discordgo session the interaction
// handlers touch. It is small enough to fake in tests.
type DiscordSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)
}

// liveSession adapts a real discordgo session to DiscordSession. The
// voice state lookup lives on the session's state cache rather than
// the session itself, which is why the adapter exists.
type liveSession struct {
	*discordgo.Session
}

func (l liveSession) VoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	return l.State.VoiceState(guildID, userID)
}

// Handlers bundles the gateway callbacks the bot registers.
type Handlers struct {
	Ready             ReadyHandler
	InteractionCreate InteractionCreateHandler
	VoiceServerUpdate VoiceServerUpdateHandler
	VoiceStateUpdate  VoiceStateUpdateHandler
}

// NewSession builds a Discord session with the intents the bot needs.
// Handlers are registered separately because they usually close over
// state that in turn needs the session.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	// Voice state tracking needs its own intent; slash commands do not.
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	return s, nil
}

// RegisterHandlers attaches the bundled callbacks to the session.
func RegisterHandlers(s *discordgo.Session, handlers Handlers) {
	s.AddHandler(handlers.Ready)
	s.AddHandler(handlers.InteractionCreate)
	s.AddHandler(handlers.VoiceServerUpdate)
	s.AddHandler(handlers.VoiceStateUpdate)
}

// MakeInteractionCreateHandler routes interactions through the command
// flows. Failures that are the user's fault come back as a UserError
// and turn into an ephemeral reply; everything else is logged and the
// user gets a generic apology.
func MakeInteractionCreateHandler(h *hub.Hub) InteractionCreateHandler {
	fm := NewFlowManager(nil)
	for _, flow := range Flows(h) {
		fm.Register(flow)
	}

	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if err := fm.Route(liveSession{s}, i); err != nil {
			var userErr *UserError
			if !errors.As(err, &userErr) {
				slog.Warn("Interaction failed", "guildID", i.GuildID, slog.Any("error", err))
			}
			respondError(s, i, err)
		}
	}
}

func MakeVoiceServerUpdateHandler(h *hub.Hub) VoiceServerUpdateHandler {
	return func(s *discordgo.Session, e *discordgo.VoiceServerUpdate) {
		if err := h.UpdateVoiceData(context.Background(), voice.ServerPayload(e)); err != nil {
			slog.Warn("Failed to apply voice server update", "guildID", e.GuildID, slog.Any("error", err))
		}
	}
}

func MakeVoiceStateUpdateHandler(h *hub.Hub) VoiceStateUpdateHandler {
	return func(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
		if err := h.UpdateVoiceData(context.Background(), voice.StatePayload(e)); err != nil {
			slog.Warn("Failed to apply voice state update", "guildID", e.GuildID, slog.Any("error", err))
		}
	}
}
