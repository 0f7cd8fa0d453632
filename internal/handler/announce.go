package handler

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/encore/internal/events"
	"github.com/glizzus/encore/internal/hub"
)

// Announce posts playback milestones to each player's text channel:
// the track that just started and the moment the queue runs dry. It
// returns a function that removes the subscriptions.
func Announce(h *hub.Hub, s *discordgo.Session) func() {
	send := func(guildID, content string) {
		p, ok := h.Get(guildID)
		if !ok || p.TextChannelID() == "" {
			return
		}
		if _, err := s.ChannelMessageSend(p.TextChannelID(), content); err != nil {
			slog.Warn("Failed to announce playback", "guildID", guildID, slog.Any("error", err))
		}
	}

	unsubscribeStart := h.Bus().Subscribe(events.KindTrackStart, func(e events.Event) {
		start, ok := e.(events.TrackStart)
		if !ok || start.Track == nil {
			return
		}
		send(start.GuildID, fmt.Sprintf("Now playing **%s** by %s.", start.Track.Info.Title, start.Track.Info.Author))
	})
	unsubscribeEnd := h.Bus().Subscribe(events.KindQueueEnd, func(e events.Event) {
		end, ok := e.(events.QueueEnd)
		if !ok {
			return
		}
		send(end.GuildID, "The queue is finished.")
	})

	return func() {
		unsubscribeStart()
		unsubscribeEnd()
	}
}
