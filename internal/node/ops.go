package node

import "context"

// Outbound ops the client sends to a node.
const (
	opPlay              = "play"
	opStop              = "stop"
	opPause             = "pause"
	opSeek              = "seek"
	opVolume            = "volume"
	opDestroy           = "destroy"
	opConfigureResuming = "configureResuming"
)

// PlayOptions tune a play operation. The zero value starts the track
// from the beginning and replaces whatever is playing.
type PlayOptions struct {
	StartTime int64
	EndTime   int64
	NoReplace bool
	Pause     bool
	Volume    int
}

type playOp struct {
	Op        string `json:"op"`
	GuildID   string `json:"guildId"`
	Track     string `json:"track"`
	StartTime int64  `json:"startTime,omitempty"`
	EndTime   int64  `json:"endTime,omitempty"`
	NoReplace bool   `json:"noReplace,omitempty"`
	Pause     bool   `json:"pause,omitempty"`
	Volume    int    `json:"volume,omitempty"`
}

type guildOp struct {
	Op      string `json:"op"`
	GuildID string `json:"guildId"`
}

type pauseOp struct {
	Op      string `json:"op"`
	GuildID string `json:"guildId"`
	Pause   bool   `json:"pause"`
}

type seekOp struct {
	Op       string `json:"op"`
	GuildID  string `json:"guildId"`
	Position int64  `json:"position"`
}

type volumeOp struct {
	Op      string `json:"op"`
	GuildID string `json:"guildId"`
	Volume  int    `json:"volume"`
}

type configureResumingOp struct {
	Op      string `json:"op"`
	Key     string `json:"key"`
	Timeout int    `json:"timeout"`
}

// Play starts the encoded track for a guild.
func (n *Node) Play(ctx context.Context, guildID, encoded string, opts PlayOptions) error {
	return n.Send(ctx, playOp{
		Op:        opPlay,
		GuildID:   guildID,
		Track:     encoded,
		StartTime: opts.StartTime,
		EndTime:   opts.EndTime,
		NoReplace: opts.NoReplace,
		Pause:     opts.Pause,
		Volume:    opts.Volume,
	})
}

// Stop halts playback for a guild without tearing the guild down.
func (n *Node) Stop(ctx context.Context, guildID string) error {
	return n.Send(ctx, guildOp{Op: opStop, GuildID: guildID})
}

// Pause pauses or resumes playback for a guild.
func (n *Node) Pause(ctx context.Context, guildID string, pause bool) error {
	return n.Send(ctx, pauseOp{Op: opPause, GuildID: guildID, Pause: pause})
}

// Seek jumps to a position, in milliseconds, within the current track.
func (n *Node) Seek(ctx context.Context, guildID string, position int64) error {
	return n.Send(ctx, seekOp{Op: opSeek, GuildID: guildID, Position: position})
}

// Volume sets the playback volume for a guild.
func (n *Node) Volume(ctx context.Context, guildID string, volume int) error {
	return n.Send(ctx, volumeOp{Op: opVolume, GuildID: guildID, Volume: volume})
}

// DestroyPlayer discards all node-side state for a guild.
func (n *Node) DestroyPlayer(ctx context.Context, guildID string) error {
	return n.Send(ctx, guildOp{Op: opDestroy, GuildID: guildID})
}
