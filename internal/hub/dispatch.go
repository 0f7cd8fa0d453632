package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glizzus/encore/internal/events"
	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/player"
)

// sentinelReplayMessage is how a node flags a track exception caused by
// playback being restarted on purpose rather than a genuine failure.
// Those exceptions never reach subscribers.
const sentinelReplayMessage = "The track was unexpectedly terminated."

// advanceTimeout bounds the node calls made by fire-and-forget queue
// advances and replays.
const advanceTimeout = 15 * time.Second

// dispatchEvent routes one playback notification from a node to the
// affected player. Notifications for guilds without a player are
// dropped silently; they race with player destruction.
func (h *Hub) dispatchEvent(nodeName string, event node.PlaybackEvent) {
	p, ok := h.players.get(event.GuildID)
	if !ok {
		return
	}

	switch event.Kind {
	case node.EventTrackStart:
		h.handleTrackStart(p)
	case node.EventTrackEnd:
		h.bus.Publish(events.NewTrackEnd(p.GuildID(), p.Queue().Current(), event.Reason))
		h.finishTrack(p)
	case node.EventTrackStuck:
		h.bus.Publish(events.NewTrackStuck(p.GuildID(), p.Queue().Current(), event.ThresholdMs))
		h.finishTrack(p)
	case node.EventTrackException:
		h.handleTrackException(p, event)
	case node.EventWebSocketClosed:
		h.handleSocketClosed(p, event)
	default:
		h.bus.Publish(events.NewNodeError(nodeName,
			fmt.Errorf("unrecognized playback event kind %q for guild %q", event.Kind, event.GuildID)))
	}
}

func (h *Hub) handleTrackStart(p *player.Player) {
	p.MarkPlaying()

	// A start caused by our own replay is old news to subscribers; the
	// track was already announced when it first started.
	if p.Replaying() {
		p.SetReplaying(false)
		return
	}

	current := p.Queue().Current()
	h.bus.Publish(events.NewTrackStart(p.GuildID(), current))
	if p.Queue().Previous() == nil {
		h.bus.Publish(events.NewQueueStart(p.GuildID(), current))
	}
	h.persist(context.Background(), p)
}

func (h *Hub) handleTrackException(p *player.Player, event node.PlaybackEvent) {
	failure := event.Failure()
	if failure != nil && failure.Message == sentinelReplayMessage {
		return
	}
	h.bus.Publish(events.NewTrackError(p.GuildID(), p.Queue().Current(), failure))
	h.finishTrack(p)
}

// finishTrack runs the shared tail of every terminal track event:
// announce a drained queue and, when auto-play is on, advance in the
// background.
func (h *Hub) finishTrack(p *player.Player) {
	if p.Queue().Len() == 0 && p.Loop() == player.LoopNone {
		h.bus.Publish(events.NewQueueEnd(p.GuildID(), p.Queue().Current()))
	}
	if h.cfg.AutoPlay {
		go h.advance(p)
	}
}

// advance is fire-and-forget off the node's read goroutine. Failures
// surface through later node notifications, not through the event that
// triggered the advance.
func (h *Hub) advance(p *player.Player) {
	ctx, cancel := context.WithTimeout(context.Background(), advanceTimeout)
	defer cancel()
	if err := p.Advance(ctx); err != nil {
		slog.Debug("queue advance failed", "guild", p.GuildID(), slog.Any("error", err))
	}
}

func (h *Hub) handleSocketClosed(p *player.Player, event node.PlaybackEvent) {
	h.bus.Publish(events.NewSocketClosed(p.GuildID(), event.Code, event.Reason, event.ByRemote))

	if !h.cfg.AutoResume || !p.VoiceConnected() {
		return
	}
	// Best-effort rejoin; a failure here stays out of the event stream.
	if err := p.Connect(); err != nil {
		slog.Debug("voice rejoin failed", "guild", p.GuildID(), slog.Any("error", err))
	}
}
