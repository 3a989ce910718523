package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// findTextChannel resolves a guild text channel by exact name. Channel names
// are matched case-sensitively, emoji prefixes included.
func findTextChannel(s *discordgo.Session, guildID, name string) (*discordgo.Channel, error) {
	channels, err := s.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("list channels for guild %s: %w", guildID, err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == name {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("channel %q not found in guild %s", name, guildID)
}
