package services

import (
	"errors"
	"testing"

	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/infrastructure/config"
)

func testPolicy() config.DiscordConfig {
	return config.DiscordConfig{
		CommandChannel:   "cmds",
		AllowedUserIDs:   []string{"100", "200"},
		AllowedUserNames: []string{"alpha-legacy"},
	}
}

func TestAuthorize(t *testing.T) {
	guard := NewAccessService(testPolicy())

	tests := []struct {
		name     string
		userID   string
		username string
		channel  string
		wantErr  error
	}{
		{"allowed id in command channel", "100", "whoever", "cmds", nil},
		{"second allowed id", "200", "", "cmds", nil},
		{"legacy name fallback", "999", "alpha-legacy", "cmds", nil},
		{"unknown user", "999", "stranger", "cmds", entities.ErrNotAuthorized},
		{"allowed user wrong channel", "100", "whoever", "general", entities.ErrWrongChannel},
		{"unknown user wrong channel rejects on identity first", "999", "stranger", "general", entities.ErrNotAuthorized},
		{"empty channel", "100", "", "", entities.ErrWrongChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Authorize(tt.userID, tt.username, tt.channel)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize(%q, %q, %q) = %v, want %v", tt.userID, tt.username, tt.channel, err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizeEmptyAllowList(t *testing.T) {
	guard := NewAccessService(config.DiscordConfig{CommandChannel: "cmds"})
	if err := guard.Authorize("100", "whoever", "cmds"); !errors.Is(err, entities.ErrNotAuthorized) {
		t.Errorf("empty allow-list should reject everyone, got %v", err)
	}
}
