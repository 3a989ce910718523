package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("storage driver: got %q, want file", cfg.Storage.Driver)
	}
	if cfg.Storage.FilePath != "data.json" {
		t.Errorf("file path: got %q, want data.json", cfg.Storage.FilePath)
	}
	if cfg.Discord.CommandChannel == "" || cfg.Discord.HistoryChannel == "" {
		t.Errorf("channel defaults missing: %+v", cfg.Discord)
	}
	if len(cfg.Discord.AllowedUserIDs) != 0 {
		t.Errorf("allow-list should default empty, got %v", cfg.Discord.AllowedUserIDs)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DISCORD_ALLOWED_USER_IDS", "100, 200,300")
	t.Setenv("DISCORD_COMMAND_CHANNEL", "ops")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Discord.AllowedUserIDs; len(got) != 3 || got[0] != "100" || got[1] != "200" || got[2] != "300" {
		t.Errorf("allow-list: got %v", got)
	}
	if cfg.Discord.CommandChannel != "ops" {
		t.Errorf("command channel: got %q", cfg.Discord.CommandChannel)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("storage driver: got %q", cfg.Storage.Driver)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server port: got %d", cfg.Server.Port)
	}
}

// Loading without a token succeeds so offline commands (migrations, state
// inspection) can run; only the serve path requires one.
func TestTokenRequiredOnlyForServe(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load without token: %v", err)
	}
	if err := cfg.Discord.ValidateServe(); err == nil {
		t.Fatal("expected missing token to fail serve validation")
	}

	cfg.Discord.Token = "test-token"
	if err := cfg.Discord.ValidateServe(); err != nil {
		t.Errorf("ValidateServe with token: %v", err)
	}
}

func TestLoadRejectsBadThumbnailURL(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DISCORD_STATUS_THUMBNAIL_URL", "not a url")

	if _, err := Load(); err == nil {
		t.Fatal("expected malformed thumbnail url to fail validation")
	}
}

func TestLoadRejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("STORAGE_DRIVER", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown storage driver to fail validation")
	}
}
