package hub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glizzus/encore/internal/events"
	"github.com/glizzus/encore/internal/player"
	"github.com/glizzus/encore/internal/voice"
)

// UpdateVoiceData feeds one Discord gateway payload into the matching
// player's voice handshake and forwards the handshake to the node once
// both halves have arrived. Payloads for guilds without a player are
// dropped; voice states of other users are ignored outright.
func (h *Hub) UpdateVoiceData(ctx context.Context, payload voice.Payload) error {
	if !payload.Recognized() {
		return &ValidationError{Reason: fmt.Sprintf("unrecognized voice payload type %q", payload.Type)}
	}

	p, ok := h.players.get(payload.GuildID())
	if !ok {
		return nil
	}

	switch payload.Type {
	case voice.PayloadTypeServerUpdate:
		p.ApplyVoiceServer(payload.Server)
	case voice.PayloadTypeStateUpdate:
		state := payload.State
		if state.UserID != h.ClientID() {
			return nil
		}
		h.trackChannelChange(ctx, p, state.ChannelID)
		p.ApplyVoiceSession(state.SessionID)
		if state.ChannelID == "" {
			// Left voice; the stale handshake is not the node's business.
			return nil
		}
	}

	// Forwarding on every completion keeps the node current when
	// Discord reissues the handshake, e.g. after a region move.
	if p.VoiceComplete() {
		if err := p.ForwardVoice(ctx); err != nil {
			return fmt.Errorf("forward voice update for guild %q: %w", p.GuildID(), err)
		}
	}
	return nil
}

// trackChannelChange records a voice channel move. Leaving voice
// entirely also drops the connected flag and pauses playback.
func (h *Hub) trackChannelChange(ctx context.Context, p *player.Player, newChannel string) {
	oldChannel := p.VoiceChannelID()
	if newChannel == oldChannel {
		return
	}

	p.SetVoiceChannel(newChannel)
	h.bus.Publish(events.NewPlayerMove(p.GuildID(), oldChannel, newChannel))

	if newChannel == "" {
		p.MarkVoiceDisconnected()
		if err := p.Pause(ctx, true); err != nil {
			slog.Debug("failed to pause after voice disconnect",
				"guild", p.GuildID(), slog.Any("error", err))
		}
	}
	h.persist(ctx, p)
}
