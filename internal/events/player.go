package events

const (
	// KindPlayerCreate identifies creation of a playback session.
	KindPlayerCreate Kind = "playerCreate"
	// KindPlayerDestroy identifies teardown of a playback session.
	KindPlayerDestroy Kind = "playerDestroy"
	// KindPlayerReplay identifies a session successfully moved to a new node.
	KindPlayerReplay Kind = "playerReplay"
	// KindReplayError identifies a session that could not be moved.
	KindReplayError Kind = "replayError"
	// KindPlayerMove identifies a session changing voice channels.
	KindPlayerMove Kind = "playerMove"
)

// PlayerCreate marks a new playback session.
type PlayerCreate struct {
	Base
	GuildID string
}

func NewPlayerCreate(guildID string) PlayerCreate {
	return PlayerCreate{Base: NewBase(KindPlayerCreate), GuildID: guildID}
}

// PlayerDestroy marks a playback session torn down.
type PlayerDestroy struct {
	Base
	GuildID string
}

func NewPlayerDestroy(guildID string) PlayerDestroy {
	return PlayerDestroy{Base: NewBase(KindPlayerDestroy), GuildID: guildID}
}

// PlayerReplay marks a session that resumed playback on a new node
// after its old node failed.
type PlayerReplay struct {
	Base
	GuildID string
	OldNode string
	NewNode string
}

func NewPlayerReplay(guildID, oldNode, newNode string) PlayerReplay {
	return PlayerReplay{Base: NewBase(KindPlayerReplay), GuildID: guildID, OldNode: oldNode, NewNode: newNode}
}

// ReplayError marks a session the hub could not replay after its node
// died.
type ReplayError struct {
	Base
	GuildID string
	Node    string
	Err     error
}

func NewReplayError(guildID, node string, err error) ReplayError {
	return ReplayError{Base: NewBase(KindReplayError), GuildID: guildID, Node: node, Err: err}
}

// PlayerMove marks a session changing voice channels. NewChannel is
// empty when the session left voice entirely.
type PlayerMove struct {
	Base
	GuildID    string
	OldChannel string
	NewChannel string
}

func NewPlayerMove(guildID, oldChannel, newChannel string) PlayerMove {
	return PlayerMove{Base: NewBase(KindPlayerMove), GuildID: guildID, OldChannel: oldChannel, NewChannel: newChannel}
}
