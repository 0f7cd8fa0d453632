package voice

import "github.com/bwmarrin/discordgo"

// OpVoiceUpdate is the node operation that carries the completed
// handshake.
const OpVoiceUpdate = "voiceUpdate"

// State accumulates the handshake for one guild. The two halves arrive
// in either order: VOICE_SERVER_UPDATE brings the server event,
// VOICE_STATE_UPDATE brings the session id. Nothing is forwarded to a
// node until all four fields are present.
//
// State never clears itself. Re-applying a half keeps it complete, so
// repeated gateway deliveries simply re-forward the same update.
type State struct {
	op        string
	guildID   string
	event     *discordgo.VoiceServerUpdate
	sessionID string
}

func NewState() *State {
	return &State{}
}

// ApplyServer records the VOICE_SERVER_UPDATE half.
func (s *State) ApplyServer(event *discordgo.VoiceServerUpdate) {
	s.op = OpVoiceUpdate
	s.guildID = event.GuildID
	s.event = event
}

// ApplySession records the session id from the VOICE_STATE_UPDATE half.
func (s *State) ApplySession(sessionID string) {
	s.sessionID = sessionID
}

// Complete reports whether all four fields have arrived.
func (s *State) Complete() bool {
	return s.op != "" && s.guildID != "" && s.event != nil && s.sessionID != ""
}

// Update returns the wire form to forward to a node. Only meaningful
// once Complete reports true.
func (s *State) Update() Update {
	return Update{
		Op:        s.op,
		GuildID:   s.guildID,
		SessionID: s.sessionID,
		Event:     s.event,
	}
}

// Update is the voiceUpdate operation a node consumes.
type Update struct {
	Op        string                       `json:"op"`
	GuildID   string                       `json:"guildId"`
	SessionID string                       `json:"sessionId"`
	Event     *discordgo.VoiceServerUpdate `json:"event"`
}
