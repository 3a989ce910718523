package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/infrastructure/config"
	"github.com/gestionbot/core/internal/ports"
)

// ChannelRecorder posts one line per committed mutation into the history
// channel of the guild the command came from.
type ChannelRecorder struct {
	session *discordgo.Session
	cfg     config.DiscordConfig
}

// NewChannelRecorder creates a new history channel recorder
func NewChannelRecorder(session *discordgo.Session, cfg config.DiscordConfig) *ChannelRecorder {
	return &ChannelRecorder{session: session, cfg: cfg}
}

func (r *ChannelRecorder) Append(ctx context.Context, entry entities.HistoryEntry) error {
	channel, err := findTextChannel(r.session, entry.GuildID, r.cfg.HistoryChannel)
	if err != nil {
		return err
	}
	if _, err := r.session.ChannelMessageSend(channel.ID, entry.Line()); err != nil {
		return fmt.Errorf("post history line: %w", err)
	}
	return nil
}

var _ ports.HistoryRecorder = (*ChannelRecorder)(nil)
