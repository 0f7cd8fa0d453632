package handler

import (
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/encore/internal/presenters"
)

// UserError is an error whose message is safe and useful to show in a
// Discord reply. Anything else gets a generic apology instead.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	content := "Something went wrong. Try again in a moment."
	var userErr *UserError
	if errors.As(err, &userErr) {
		content = userErr.Message
	}

	if err := s.InteractionRespond(i.Interaction, presenters.EphemeralResponse(content)); err != nil {
		slog.Debug("Failed to send error response", slog.Any("error", err))
	}
}
