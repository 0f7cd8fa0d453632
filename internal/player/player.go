// Package player implements one guild's playback session: its queue,
// its node binding, and the operations the application runs against it.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/track"
	"github.com/glizzus/encore/internal/voice"
)

var (
	// ErrNothingToPlay is returned by Play when the queue has no
	// current track.
	ErrNothingToPlay = errors.New("nothing to play")

	// ErrNoVoiceChannel is returned by Connect when the player has no
	// voice channel to join.
	ErrNoVoiceChannel = errors.New("player has no voice channel")

	// ErrNoMatches is returned when resolving a query turns up nothing.
	ErrNoMatches = errors.New("no matches for query")

	// ErrNoNode is returned by node-backed operations when the player
	// has lost its node binding.
	ErrNoNode = errors.New("player has no node")
)

// State is a player's playback state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

var stateNames = map[State]string{
	StateIdle:    "idle",
	StatePlaying: "playing",
	StatePaused:  "paused",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Gateway sends voice-channel intents to Discord on behalf of a
// player. A discordgo session satisfies it through a small adapter.
type Gateway interface {
	SendVoiceUpdate(guildID, channelID string, selfMute, selfDeaf bool) error
}

// Config carries the per-player settings fixed at creation time.
type Config struct {
	VoiceChannelID string
	TextChannelID  string

	// SearchPrefix is prepended to search criteria when an unresolved
	// track has to be looked up, e.g. "ytsearch:".
	SearchPrefix string

	SelfMute bool
	SelfDeaf bool
	Volume   int
}

// Player is one guild's playback session. It is bound to exactly one
// node at a time; Move rebinds it.
type Player struct {
	guildID string
	gateway Gateway
	queue   *Queue

	mu             sync.RWMutex
	node           *node.Node
	voice          *voice.State
	state          State
	loop           Loop
	replaying      bool
	voiceConnected bool
	voiceChannelID string
	textChannelID  string
	position       int64
	volume         int
	selfMute       bool
	selfDeaf       bool
	searchPrefix   string
}

// New builds a player assigned to the given node. The player does not
// touch the node until an operation runs.
func New(guildID string, n *node.Node, gateway Gateway, cfg Config) *Player {
	volume := cfg.Volume
	if volume <= 0 {
		volume = 100
	}
	return &Player{
		guildID:        guildID,
		gateway:        gateway,
		queue:          NewQueue(),
		node:           n,
		voice:          voice.NewState(),
		loop:           LoopNone,
		voiceChannelID: cfg.VoiceChannelID,
		textChannelID:  cfg.TextChannelID,
		volume:         volume,
		selfMute:       cfg.SelfMute,
		selfDeaf:       cfg.SelfDeaf,
		searchPrefix:   cfg.SearchPrefix,
	}
}

func (p *Player) GuildID() string {
	return p.guildID
}

func (p *Player) Queue() *Queue {
	return p.queue
}

func (p *Player) Node() *node.Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.node
}

// SetNode rebinds the player without any node-side effects. Move is
// the full reassignment.
func (p *Player) SetNode(n *node.Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.node = n
}

func (p *Player) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// MarkPlaying flips the playback state to playing. The dispatcher
// calls it on track start notifications.
func (p *Player) MarkPlaying() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StatePlaying
}

func (p *Player) Loop() Loop {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loop
}

func (p *Player) SetLoop(loop Loop) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
}

// Replaying reports whether the next track start notification belongs
// to a node-triggered replay rather than a fresh start.
func (p *Player) Replaying() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.replaying
}

func (p *Player) SetReplaying(replaying bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replaying = replaying
}

func (p *Player) VoiceConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.voiceConnected
}

func (p *Player) VoiceChannelID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.voiceChannelID
}

func (p *Player) TextChannelID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.textChannelID
}

func (p *Player) Position() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

func (p *Player) Volume() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// backend returns the assigned node, or ErrNoNode when the player has
// been orphaned.
func (p *Player) backend() (*node.Node, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.node == nil {
		return nil, ErrNoNode
	}
	return p.node, nil
}

// ApplyVoiceServer records the VOICE_SERVER_UPDATE half of the
// handshake.
func (p *Player) ApplyVoiceServer(event *discordgo.VoiceServerUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voice.ApplyServer(event)
}

// ApplyVoiceSession records the session id from the VOICE_STATE_UPDATE
// half of the handshake.
func (p *Player) ApplyVoiceSession(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voice.ApplySession(sessionID)
}

// VoiceComplete reports whether both handshake halves have arrived.
func (p *Player) VoiceComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.voice.Complete()
}

// ForwardVoice sends the completed handshake to the assigned node and
// marks the voice connection up.
func (p *Player) ForwardVoice(ctx context.Context) error {
	p.mu.RLock()
	n := p.node
	complete := p.voice.Complete()
	update := p.voice.Update()
	p.mu.RUnlock()

	if !complete {
		return errors.New("voice handshake is incomplete")
	}
	if n == nil {
		return ErrNoNode
	}
	if err := n.Send(ctx, update); err != nil {
		return fmt.Errorf("forward voice handshake to node %q: %w", n.Name(), err)
	}

	p.mu.Lock()
	p.voiceConnected = true
	p.mu.Unlock()
	return nil
}

// MarkVoiceDisconnected records that the player left voice.
func (p *Player) MarkVoiceDisconnected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voiceConnected = false
}

// SetVoiceChannel updates the remembered voice channel.
func (p *Player) SetVoiceChannel(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voiceChannelID = channelID
}

// ApplyUpdate records the progress snapshot streamed by the node.
func (p *Player) ApplyUpdate(state node.PlayerUpdateState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = state.Position
	p.voiceConnected = state.Connected
}

// Connect joins the remembered voice channel through the gateway. The
// actual voice connection comes up once Discord answers with the
// handshake payloads.
func (p *Player) Connect() error {
	p.mu.RLock()
	channel := p.voiceChannelID
	mute, deaf := p.selfMute, p.selfDeaf
	p.mu.RUnlock()

	if channel == "" {
		return ErrNoVoiceChannel
	}
	if err := p.gateway.SendVoiceUpdate(p.guildID, channel, mute, deaf); err != nil {
		return fmt.Errorf("join voice channel %q: %w", channel, err)
	}
	return nil
}

// Disconnect leaves the voice channel.
func (p *Player) Disconnect() error {
	if err := p.gateway.SendVoiceUpdate(p.guildID, "", false, false); err != nil {
		return fmt.Errorf("leave voice channel: %w", err)
	}
	p.mu.Lock()
	p.voiceConnected = false
	p.voiceChannelID = ""
	p.mu.Unlock()
	return nil
}

// Play starts the queue's current track on the assigned node,
// resolving it first when it only carries search criteria.
func (p *Player) Play(ctx context.Context, opts node.PlayOptions) error {
	current := p.queue.Current()
	if current == nil {
		return ErrNothingToPlay
	}

	p.mu.RLock()
	n := p.node
	prefix := p.searchPrefix
	volume := p.volume
	p.mu.RUnlock()

	if n == nil {
		return ErrNoNode
	}
	if !current.Resolved() {
		if err := resolve(ctx, n, current, prefix); err != nil {
			return err
		}
	}

	if opts.Volume == 0 {
		opts.Volume = volume
	}
	if err := n.Play(ctx, p.guildID, current.Encoded, opts); err != nil {
		return fmt.Errorf("play on node %q: %w", n.Name(), err)
	}

	p.mu.Lock()
	if opts.Pause {
		p.state = StatePaused
	} else {
		p.state = StatePlaying
	}
	p.mu.Unlock()
	return nil
}

// Advance moves the queue forward under the loop mode and plays the
// next track. A drained queue leaves the player idle.
func (p *Player) Advance(ctx context.Context) error {
	p.mu.RLock()
	loop := p.loop
	p.mu.RUnlock()

	next := p.queue.Advance(loop)
	if next == nil {
		p.mu.Lock()
		p.state = StateIdle
		p.position = 0
		p.mu.Unlock()
		return nil
	}
	return p.Play(ctx, node.PlayOptions{})
}

// Pause pauses or resumes playback.
func (p *Player) Pause(ctx context.Context, pause bool) error {
	n, err := p.backend()
	if err != nil {
		return err
	}

	if err := n.Pause(ctx, p.guildID, pause); err != nil {
		return fmt.Errorf("pause on node %q: %w", n.Name(), err)
	}

	p.mu.Lock()
	if pause {
		p.state = StatePaused
	} else if p.queue.Current() != nil {
		p.state = StatePlaying
	}
	p.mu.Unlock()
	return nil
}

// Stop halts playback without touching the queue.
func (p *Player) Stop(ctx context.Context) error {
	n, err := p.backend()
	if err != nil {
		return err
	}

	if err := n.Stop(ctx, p.guildID); err != nil {
		return fmt.Errorf("stop on node %q: %w", n.Name(), err)
	}

	p.mu.Lock()
	p.state = StateIdle
	p.position = 0
	p.mu.Unlock()
	return nil
}

// Seek jumps to a position, in milliseconds, within the current track.
func (p *Player) Seek(ctx context.Context, position int64) error {
	if position < 0 {
		return fmt.Errorf("seek position must not be negative, got %d", position)
	}

	n, err := p.backend()
	if err != nil {
		return err
	}

	if err := n.Seek(ctx, p.guildID, position); err != nil {
		return fmt.Errorf("seek on node %q: %w", n.Name(), err)
	}

	p.mu.Lock()
	p.position = position
	p.mu.Unlock()
	return nil
}

// SetVolume sets the playback volume. Nodes accept 0 through 1000.
func (p *Player) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 || volume > 1000 {
		return fmt.Errorf("volume must be between 0 and 1000, got %d", volume)
	}

	n, err := p.backend()
	if err != nil {
		return err
	}

	if err := n.Volume(ctx, p.guildID, volume); err != nil {
		return fmt.Errorf("set volume on node %q: %w", n.Name(), err)
	}

	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
	return nil
}

// Move rebinds the player to a new node, forwarding the accumulated
// voice handshake before replaying the current track at its last known
// position. The old node is told to drop the guild when it is still
// reachable.
func (p *Player) Move(ctx context.Context, dest *node.Node) error {
	if dest == nil {
		return ErrNoNode
	}

	p.mu.Lock()
	old := p.node
	p.node = dest
	state := p.state
	position := p.position
	complete := p.voice.Complete()
	update := p.voice.Update()
	p.mu.Unlock()

	if old != nil && old != dest && old.Available() {
		if err := old.DestroyPlayer(ctx, p.guildID); err != nil {
			slog.Debug("failed to clear guild from old node",
				"guild", p.guildID, "node", old.Name(), slog.Any("error", err))
		}
	}

	if complete {
		if err := dest.Send(ctx, update); err != nil {
			return fmt.Errorf("forward voice handshake to node %q: %w", dest.Name(), err)
		}
	}

	if p.queue.Current() == nil || state == StateIdle {
		return nil
	}

	// The replay triggers a fresh track start notification from the
	// new node; the flag keeps it from surfacing as a second start.
	p.SetReplaying(true)
	if err := p.Play(ctx, node.PlayOptions{StartTime: position, Pause: state == StatePaused}); err != nil {
		p.SetReplaying(false)
		return err
	}
	return nil
}

// resolve fills in the encoded form for a track holding only search
// criteria.
func resolve(ctx context.Context, n *node.Node, tr *track.Track, prefix string) error {
	query := tr.Info.Title
	result, err := n.LoadTracks(ctx, prefix+query)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", query, err)
	}
	found := result.First()
	if found == nil {
		return fmt.Errorf("resolve %q: %w", query, ErrNoMatches)
	}
	tr.Encoded = found.Encoded
	tr.Info = found.Info
	return nil
}
