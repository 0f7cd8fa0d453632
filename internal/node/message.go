package node

import "github.com/glizzus/encore/internal/track"

// Inbound ops a node pushes over the socket.
const (
	opStats        = "stats"
	opEvent        = "event"
	opPlayerUpdate = "playerUpdate"
)

// Playback event kinds a node reports.
const (
	EventTrackStart      = "TrackStartEvent"
	EventTrackEnd        = "TrackEndEvent"
	EventTrackException  = "TrackExceptionEvent"
	EventTrackStuck      = "TrackStuckEvent"
	EventWebSocketClosed = "WebSocketClosedEvent"
)

// message is the envelope every inbound payload shares.
type message struct {
	Op string `json:"op"`
}

// PlaybackEvent is one node-side playback notification for one guild.
// Which fields are set depends on Kind.
type PlaybackEvent struct {
	Kind        string           `json:"type"`
	GuildID     string           `json:"guildId"`
	Track       string           `json:"track"`
	Reason      string           `json:"reason"`
	Error       string           `json:"error"`
	Exception   *track.Exception `json:"exception"`
	ThresholdMs int64            `json:"thresholdMs"`
	Code        int              `json:"code"`
	ByRemote    bool             `json:"byRemote"`
}

// Failure coalesces the exception object with the plain error string
// older nodes send instead.
func (e PlaybackEvent) Failure() *track.Exception {
	if e.Exception != nil {
		return e.Exception
	}
	if e.Error != "" {
		return &track.Exception{Message: e.Error}
	}
	return nil
}

// PlayerUpdateState is the progress snapshot a node streams while a
// guild is playing.
type PlayerUpdateState struct {
	Time      int64 `json:"time"`
	Position  int64 `json:"position"`
	Connected bool  `json:"connected"`
}

type playerUpdateMessage struct {
	Op      string            `json:"op"`
	GuildID string            `json:"guildId"`
	State   PlayerUpdateState `json:"state"`
}

// Stats is the load report a node pushes periodically.
type Stats struct {
	Players        int         `json:"players"`
	PlayingPlayers int         `json:"playingPlayers"`
	Uptime         int64       `json:"uptime"`
	Memory         *Memory     `json:"memory"`
	CPU            *CPU        `json:"cpu"`
	FrameStats     *FrameStats `json:"frameStats"`
}

type Memory struct {
	Free       int64 `json:"free"`
	Used       int64 `json:"used"`
	Allocated  int64 `json:"allocated"`
	Reservable int64 `json:"reservable"`
}

type CPU struct {
	Cores       int     `json:"cores"`
	SystemLoad  float64 `json:"systemLoad"`
	ProcessLoad float64 `json:"processLoad"`
}

type FrameStats struct {
	Sent    int `json:"sent"`
	Nulled  int `json:"nulled"`
	Deficit int `json:"deficit"`
}

type statsMessage struct {
	Op string `json:"op"`
	Stats
}
