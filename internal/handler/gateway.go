package handler

import (
	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/encore/internal/player"
)

// Gateway lets players drive the Discord gateway: joining a voice
// channel is an op 4 frame, and an empty channel id leaves.
type Gateway struct {
	session *discordgo.Session
}

func NewGateway(s *discordgo.Session) *Gateway {
	return &Gateway{session: s}
}

func (g *Gateway) SendVoiceUpdate(guildID, channelID string, selfMute, selfDeaf bool) error {
	return g.session.ChannelVoiceJoinManual(guildID, channelID, selfMute, selfDeaf)
}

var _ player.Gateway = (*Gateway)(nil)
