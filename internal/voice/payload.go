// Package voice accumulates the two-part Discord voice handshake that
// a node needs before it can open a guild's voice connection.
package voice

import "github.com/bwmarrin/discordgo"

// PayloadType discriminates the two gateway payloads that feed the
// handshake.
type PayloadType string

const (
	PayloadTypeServerUpdate PayloadType = "VOICE_SERVER_UPDATE"
	PayloadTypeStateUpdate  PayloadType = "VOICE_STATE_UPDATE"
)

// Payload is one gateway payload tagged with its type. Exactly one of
// Server and State is set, matching Type.
type Payload struct {
	Type   PayloadType
	Server *discordgo.VoiceServerUpdate
	State  *discordgo.VoiceStateUpdate
}

func ServerPayload(event *discordgo.VoiceServerUpdate) Payload {
	return Payload{Type: PayloadTypeServerUpdate, Server: event}
}

func StatePayload(event *discordgo.VoiceStateUpdate) Payload {
	return Payload{Type: PayloadTypeStateUpdate, State: event}
}

// Recognized reports whether the payload carries one of the two known
// types.
func (p Payload) Recognized() bool {
	return p.Type == PayloadTypeServerUpdate || p.Type == PayloadTypeStateUpdate
}

// GuildID returns the guild the payload belongs to, or empty when the
// payload is malformed.
func (p Payload) GuildID() string {
	switch p.Type {
	case PayloadTypeServerUpdate:
		if p.Server != nil {
			return p.Server.GuildID
		}
	case PayloadTypeStateUpdate:
		if p.State != nil {
			return p.State.GuildID
		}
	}
	return ""
}
