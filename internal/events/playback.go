package events

import "github.com/glizzus/encore/internal/track"

const (
	// KindQueueStart identifies the first track of a fresh queue starting.
	KindQueueStart Kind = "queueStart"
	// KindQueueEnd identifies a queue running out of tracks.
	KindQueueEnd Kind = "queueEnd"
	// KindTrackStart identifies a track beginning playback.
	KindTrackStart Kind = "trackStart"
	// KindTrackEnd identifies a track finishing playback.
	KindTrackEnd Kind = "trackEnd"
	// KindTrackStuck identifies a track that stopped making progress.
	KindTrackStuck Kind = "trackStuck"
	// KindTrackError identifies a track the node failed to play.
	KindTrackError Kind = "trackError"
	// KindSocketClosed identifies the node reporting a closed Discord
	// voice connection for one guild.
	KindSocketClosed Kind = "socketClosed"
)

// QueueStart marks the first track of a fresh queue, fired alongside
// the trackStart for that track.
type QueueStart struct {
	Base
	GuildID string
	Track   *track.Track
}

func NewQueueStart(guildID string, tr *track.Track) QueueStart {
	return QueueStart{Base: NewBase(KindQueueStart), GuildID: guildID, Track: tr}
}

// QueueEnd marks a queue that has no further tracks to play.
type QueueEnd struct {
	Base
	GuildID string
	Track   *track.Track
}

func NewQueueEnd(guildID string, tr *track.Track) QueueEnd {
	return QueueEnd{Base: NewBase(KindQueueEnd), GuildID: guildID, Track: tr}
}

// TrackStart marks a track beginning playback.
type TrackStart struct {
	Base
	GuildID string
	Track   *track.Track
}

func NewTrackStart(guildID string, tr *track.Track) TrackStart {
	return TrackStart{Base: NewBase(KindTrackStart), GuildID: guildID, Track: tr}
}

// TrackEnd marks a track finishing playback, with the node's reason.
type TrackEnd struct {
	Base
	GuildID string
	Track   *track.Track
	Reason  string
}

func NewTrackEnd(guildID string, tr *track.Track, reason string) TrackEnd {
	return TrackEnd{Base: NewBase(KindTrackEnd), GuildID: guildID, Track: tr, Reason: reason}
}

// TrackStuck marks a track that exceeded the node's progress threshold.
type TrackStuck struct {
	Base
	GuildID     string
	Track       *track.Track
	ThresholdMs int64
}

func NewTrackStuck(guildID string, tr *track.Track, thresholdMs int64) TrackStuck {
	return TrackStuck{Base: NewBase(KindTrackStuck), GuildID: guildID, Track: tr, ThresholdMs: thresholdMs}
}

// TrackError marks a track the node reported an exception for.
type TrackError struct {
	Base
	GuildID   string
	Track     *track.Track
	Exception *track.Exception
}

func NewTrackError(guildID string, tr *track.Track, exc *track.Exception) TrackError {
	return TrackError{Base: NewBase(KindTrackError), GuildID: guildID, Track: tr, Exception: exc}
}

// SocketClosed marks the node-side Discord voice connection closing
// for one guild.
type SocketClosed struct {
	Base
	GuildID  string
	Code     int
	Reason   string
	ByRemote bool
}

func NewSocketClosed(guildID string, code int, reason string, byRemote bool) SocketClosed {
	return SocketClosed{Base: NewBase(KindSocketClosed), GuildID: guildID, Code: code, Reason: reason, ByRemote: byRemote}
}
