package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/encore/internal/hub"
	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/player"
	"github.com/glizzus/encore/internal/presenters"
	"github.com/glizzus/encore/internal/track"
)

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "play",
		Description: "Queue a track or playlist by search term or link",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "query",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "A search term or a direct link",
				Required:    true,
			},
		},
	},
	{
		Name:        "search",
		Description: "Search for a track and pick from the results",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "query",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "What to search for",
				Required:    true,
			},
		},
	},
	{
		Name:        "skip",
		Description: "Skip the current track",
	},
	{
		Name:        "pause",
		Description: "Pause playback",
	},
	{
		Name:        "resume",
		Description: "Resume playback",
	},
	{
		Name:        "stop",
		Description: "Stop playback and clear the queue",
	},
	{
		Name:        "seek",
		Description: "Jump to a position in the current track",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "position",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Position in seconds",
				Required:    true,
			},
		},
	},
	{
		Name:        "volume",
		Description: "Set the playback volume",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "level",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Volume from 0 to 1000, 100 is normal",
				Required:    true,
			},
		},
	},
	{
		Name:        "loop",
		Description: "Choose what repeats when a track ends",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "mode",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "What to repeat",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "off", Value: "none"},
					{Name: "track", Value: "track"},
					{Name: "queue", Value: "queue"},
				},
			},
		},
	},
	{
		Name:        "queue",
		Description: "Show what is queued up",
	},
	{
		Name:        "nowplaying",
		Description: "Show the current track and its progress",
	},
	{
		Name:        "disconnect",
		Description: "Leave the voice channel and forget the queue",
	},
}

func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}

// Flows builds the interaction flow for every command. All of them are
// single steps except search, which waits for a pick from the select
// menu it replies with.
func Flows(h *hub.Hub) []*Flow {
	c := &commands{h: h}
	return []*Flow{
		commandFlow("play", c.play),
		searchFlow(c),
		commandFlow("skip", c.skip),
		commandFlow("pause", c.pause),
		commandFlow("resume", c.resume),
		commandFlow("stop", c.stop),
		commandFlow("seek", c.seek),
		commandFlow("volume", c.volume),
		commandFlow("loop", c.loop),
		commandFlow("queue", c.queueList),
		commandFlow("nowplaying", c.nowPlaying),
		commandFlow("disconnect", c.disconnect),
	}
}

func commandFlow(name string, handler func(DiscordSession, *discordgo.InteractionCreate, *FlowContext) error) *Flow {
	return &Flow{
		ID: name,
		Root: &Step{
			ID:      name,
			Matcher: commandMatcher(name),
			Handler: handler,
		},
	}
}

func commandMatcher(name string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		return i.ApplicationCommandData().Name == name
	}
}

func componentMatcher(component string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionMessageComponent {
			return false
		}
		return strings.HasPrefix(i.MessageComponentData().CustomID, component+":")
	}
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, opt := range data.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func intOption(data discordgo.ApplicationCommandInteractionData, name string) (int64, bool) {
	for _, opt := range data.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionInteger {
			return opt.IntValue(), true
		}
	}
	return 0, false
}

// interactionUser works for both guild interactions, which carry a
// member, and DM interactions, which carry a bare user.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

type commands struct {
	h *hub.Hub
}

// requireVoice resolves the caller's voice channel, refusing DMs and
// users who are not in voice.
func (c *commands) requireVoice(s DiscordSession, i *discordgo.InteractionCreate) (string, error) {
	if i.GuildID == "" {
		return "", &UserError{Message: "This command only works in a server."}
	}
	vs, err := s.VoiceState(i.GuildID, interactionUser(i).ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", &UserError{Message: "Join a voice channel first."}
	}
	return vs.ChannelID, nil
}

func (c *commands) requirePlayer(i *discordgo.InteractionCreate) (*player.Player, error) {
	if i.GuildID == "" {
		return nil, &UserError{Message: "This command only works in a server."}
	}
	p, ok := c.h.Get(i.GuildID)
	if !ok {
		return nil, &UserError{Message: "Nothing is playing in this server."}
	}
	return p, nil
}

// startPlayback queues tracks for the caller's guild, joining their
// voice channel and starting the player unless it is already busy.
func (c *commands) startPlayback(ctx context.Context, i *discordgo.InteractionCreate, channelID string, tracks ...*track.Track) error {
	p, err := c.h.Create(ctx, hub.PlayerOptions{
		GuildID:        i.GuildID,
		VoiceChannelID: channelID,
		TextChannelID:  i.ChannelID,
		SelfDeaf:       true,
	})
	if err != nil {
		return err
	}

	if !p.VoiceConnected() {
		if err := p.Connect(); err != nil {
			return fmt.Errorf("failed to join voice: %w", err)
		}
	}

	p.Queue().Add(tracks...)
	if p.State() == player.StateIdle {
		if err := p.Play(ctx, node.PlayOptions{}); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
	}
	return nil
}

func (c *commands) play(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	query := stringOption(i.ApplicationCommandData(), "query")
	if query == "" {
		return &UserError{Message: "Tell me what to play."}
	}

	channelID, err := c.requireVoice(s, i)
	if err != nil {
		return err
	}

	ctx := context.Background()
	result, err := c.h.Search(ctx, query, interactionUser(i).ID)
	if err != nil {
		return err
	}

	var tracks []*track.Track
	var queued string
	switch result.LoadType {
	case track.LoadTypeTrack, track.LoadTypeSearch:
		first := result.First()
		if first == nil {
			return &UserError{Message: "No results for that query."}
		}
		tracks = []*track.Track{first}
		queued = fmt.Sprintf("Queued **%s**.", first.Info.Title)
	case track.LoadTypePlaylist:
		tracks = result.Tracks
		queued = fmt.Sprintf("Queued **%s** (%d tracks).", result.PlaylistInfo.Name, len(result.Tracks))
	case track.LoadTypeNoMatches:
		return &UserError{Message: "No results for that query."}
	case track.LoadTypeFailed:
		reason := "the source refused it"
		if result.Exception != nil {
			reason = result.Exception.Message
		}
		return &UserError{Message: "Could not load that: " + reason}
	default:
		return fmt.Errorf("unhandled load type %q", result.LoadType)
	}

	if err := c.startPlayback(ctx, i, channelID, tracks...); err != nil {
		return err
	}
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse(queued))
}

// searchStateTracks is the flow state key the search results live under.
const searchStateTracks = "tracks"

func searchFlow(c *commands) *Flow {
	return &Flow{
		ID: "search",
		Root: &Step{
			ID:      "search",
			Matcher: commandMatcher("search"),
			Handler: c.search,
			Next: []*Step{
				{
					ID:      "select",
					Matcher: componentMatcher(presenters.ComponentIDTrackSelect),
					Handler: c.searchSelect,
				},
			},
		},
	}
}

func (c *commands) search(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
	query := stringOption(i.ApplicationCommandData(), "query")
	if query == "" {
		return &UserError{Message: "Tell me what to search for."}
	}

	result, err := c.h.Search(context.Background(), query, interactionUser(i).ID)
	if err != nil {
		return err
	}
	if result.LoadType == track.LoadTypeFailed || len(result.Tracks) == 0 {
		return &UserError{Message: "No results for that query."}
	}

	ctx.State[searchStateTracks] = result.Tracks
	customID := FlowCustomID(presenters.ComponentIDTrackSelect, ctx)
	return s.InteractionRespond(i.Interaction, presenters.SearchSelectResponse(customID, result.Tracks))
}

func (c *commands) searchSelect(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
	tracks, _ := ctx.State[searchStateTracks].([]*track.Track)
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return &UserError{Message: "Nothing was selected."}
	}
	idx, err := strconv.Atoi(values[0])
	if err != nil || idx < 0 || idx >= len(tracks) {
		return &UserError{Message: "That selection is no longer valid."}
	}
	tr := tracks[idx]

	// The selection can arrive minutes after the search, so the
	// caller's voice channel is resolved fresh here.
	channelID, err := c.requireVoice(s, i)
	if err != nil {
		return err
	}

	if err := c.startPlayback(context.Background(), i, channelID, tr); err != nil {
		return err
	}
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse(fmt.Sprintf("Queued **%s**.", tr.Info.Title)))
}

func (c *commands) skip(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}
	if p.Queue().Current() == nil {
		return &UserError{Message: "Nothing is playing."}
	}

	ctx := context.Background()
	if c.h.AutoPlay() {
		// Stopping the track makes the node report its end, and the
		// end notification advances the queue.
		if err := p.Stop(ctx); err != nil {
			return fmt.Errorf("failed to skip: %w", err)
		}
	} else if err := p.Advance(ctx); err != nil {
		return fmt.Errorf("failed to skip: %w", err)
	}
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse("Skipped."))
}

func (c *commands) pause(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	return c.setPaused(s, i, true, "Paused.")
}

func (c *commands) resume(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	return c.setPaused(s, i, false, "Resumed.")
}

func (c *commands) setPaused(s DiscordSession, i *discordgo.InteractionCreate, paused bool, confirmation string) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}
	if err := p.Pause(context.Background(), paused); err != nil {
		return fmt.Errorf("failed to update pause state: %w", err)
	}
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse(confirmation))
}

func (c *commands) stop(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}

	p.Queue().Clear()
	if err := p.Stop(context.Background()); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse("Stopped and cleared the queue."))
}

func (c *commands) seek(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}

	seconds, ok := intOption(i.ApplicationCommandData(), "position")
	if !ok || seconds < 0 {
		return &UserError{Message: "Give me a position in seconds."}
	}

	current := p.Queue().Current()
	if current == nil {
		return &UserError{Message: "Nothing is playing."}
	}
	if current.Info.IsStream || !current.Info.IsSeekable {
		return &UserError{Message: "This track cannot be seeked."}
	}

	position := seconds * 1000
	if position > current.Info.Length {
		return &UserError{Message: "That position is past the end of the track."}
	}

	if err := p.Seek(context.Background(), position); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	confirmation := fmt.Sprintf("Jumped to %s.", presenters.FormatDuration(position))
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse(confirmation))
}

func (c *commands) volume(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}

	level, ok := intOption(i.ApplicationCommandData(), "level")
	if !ok || level < 0 || level > 1000 {
		return &UserError{Message: "Volume goes from 0 to 1000."}
	}

	if err := p.SetVolume(context.Background(), int(level)); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse(fmt.Sprintf("Volume set to %d.", level)))
}

func (c *commands) loop(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}

	var confirmation string
	switch stringOption(i.ApplicationCommandData(), "mode") {
	case "none":
		p.SetLoop(player.LoopNone)
		confirmation = "Looping off."
	case "track":
		p.SetLoop(player.LoopTrack)
		confirmation = "Looping the current track."
	case "queue":
		p.SetLoop(player.LoopQueue)
		confirmation = "Looping the whole queue."
	default:
		return &UserError{Message: "Pick a loop mode: off, track or queue."}
	}
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse(confirmation))
}

func (c *commands) queueList(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}
	q := p.Queue()
	return s.InteractionRespond(i.Interaction, presenters.QueueResponse(q.Current(), q.Upcoming()))
}

func (c *commands) nowPlaying(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}
	return s.InteractionRespond(i.Interaction, presenters.NowPlayingResponse(p.Queue().Current(), p.Position()))
}

func (c *commands) disconnect(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	p, err := c.requirePlayer(i)
	if err != nil {
		return err
	}

	if err := p.Disconnect(); err != nil {
		return fmt.Errorf("failed to leave voice: %w", err)
	}
	if err := c.h.Destroy(context.Background(), i.GuildID); err != nil {
		return fmt.Errorf("failed to tear down player: %w", err)
	}
	return s.InteractionRespond(i.Interaction, presenters.MessageResponse("Disconnected."))
}
