// Package presenters builds the Discord interaction responses the bot
// sends. Keeping them pure makes the formatting testable without a
// Discord session.
package presenters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/encore/internal/track"
)

// ComponentIDTrackSelect is the custom id prefix of the search result
// menu. The suffix routes the selection back to the search that built
// the menu.
const ComponentIDTrackSelect = "track_select_menu"

// maxSelectOptions is Discord's cap on select menu entries.
const maxSelectOptions = 25

// maxQueueLines keeps the queue listing readable.
const maxQueueLines = 10

var trackSelectMinValues = 1

// MessageResponse wraps plain content in an interaction response.
func MessageResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	}
}

// EphemeralResponse wraps content only the invoking user sees.
func EphemeralResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// NowPlayingResponse describes the current track and progress.
func NowPlayingResponse(tr *track.Track, position int64) *discordgo.InteractionResponse {
	if tr == nil {
		return MessageResponse("Nothing is playing right now")
	}

	var progress string
	if tr.Info.IsStream {
		progress = "LIVE"
	} else {
		progress = FormatDuration(position) + " / " + FormatDuration(tr.Info.Length)
	}
	content := fmt.Sprintf("**%s** by %s `%s`", tr.Info.Title, tr.Info.Author, progress)
	return MessageResponse(content)
}

// QueueResponse lists the current track and what waits behind it.
func QueueResponse(current *track.Track, upcoming []*track.Track) *discordgo.InteractionResponse {
	if current == nil {
		return MessageResponse("The queue is empty")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Now playing: **%s**\n", current.Info.Title)
	for i, tr := range upcoming {
		if i == maxQueueLines {
			fmt.Fprintf(&b, "…and %d more", len(upcoming)-maxQueueLines)
			break
		}
		fmt.Fprintf(&b, "%d. %s `%s`\n", i+1, tr.Info.Title, FormatDuration(tr.Info.Length))
	}
	return MessageResponse(strings.TrimRight(b.String(), "\n"))
}

// SearchSelectResponse offers search results in a select menu under
// the given custom id. The option values are result indexes; the
// handler that receives the selection resolves them against the
// result list it kept.
func SearchSelectResponse(customID string, tracks []*track.Track) *discordgo.InteractionResponse {
	if len(tracks) == 0 {
		return MessageResponse("No tracks found")
	}

	if len(tracks) > maxSelectOptions {
		tracks = tracks[:maxSelectOptions]
	}
	options := make([]discordgo.SelectMenuOption, 0, len(tracks))
	for i, tr := range tracks {
		options = append(options, discordgo.SelectMenuOption{
			Label:       clip(tr.Info.Title, 100),
			Description: clip(tr.Info.Author, 100),
			Value:       strconv.Itoa(i),
		})
	}

	menu := discordgo.SelectMenu{
		CustomID:    customID,
		Placeholder: "Pick a track",
		MinValues:   &trackSelectMinValues,
		MaxValues:   1,
		Options:     options,
	}
	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{menu},
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    "Choose a track:",
			Components: []discordgo.MessageComponent{row},
		},
	}
}

// FormatDuration renders milliseconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(ms int64) string {
	total := ms / 1000
	seconds := total % 60
	minutes := total / 60 % 60
	hours := total / 3600
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
