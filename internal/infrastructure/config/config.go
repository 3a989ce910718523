package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the operational HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DiscordConfig holds the bot token, channel names and the authorization
// policy. AllowedUserIDs is the preferred allow-list; AllowedUserNames is a
// legacy fallback matched against username and should not gain new entries.
type DiscordConfig struct {
	Token              string   `mapstructure:"token"`
	GuildID            string   `mapstructure:"guild_id"`
	CommandChannel     string   `mapstructure:"command_channel" validate:"required"`
	BankChannel        string   `mapstructure:"bank_channel" validate:"required"`
	MerchandiseChannel string   `mapstructure:"merchandise_channel" validate:"required"`
	HistoryChannel     string   `mapstructure:"history_channel" validate:"required"`
	StatusThumbnailURL string   `mapstructure:"status_thumbnail_url" validate:"omitempty,url"`
	AllowedUserIDs     []string `mapstructure:"allowed_user_ids"`
	AllowedUserNames   []string `mapstructure:"allowed_user_names"`
}

// ValidateServe checks the fields only the bot process needs. Offline
// commands (migrations, state inspection) load configuration without a
// token.
func (cfg *DiscordConfig) ValidateServe() error {
	if cfg.Token == "" {
		return fmt.Errorf("discord token is required")
	}
	return nil
}

// StorageConfig selects the ledger persistence backend
type StorageConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=file postgres"`
	FilePath string `mapstructure:"file_path"`
}

// DatabaseConfig holds postgres configuration (postgres driver only)
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds rate limiting for the operational HTTP server
type SecurityConfig struct {
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma lists arrive as single env strings
	cfg.Discord.AllowedUserIDs = splitList(v.GetString("discord.allowed_user_ids"))
	cfg.Discord.AllowedUserNames = splitList(v.GetString("discord.allowed_user_names"))

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "GestionBot")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Discord defaults (channel names match the server channels)
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("discord.command_channel", "⚡┇cmds")
	v.SetDefault("discord.bank_channel", "💵┇banque")
	v.SetDefault("discord.merchandise_channel", "📦┇marchandises")
	v.SetDefault("discord.history_channel", "📋┇historique")
	v.SetDefault("discord.status_thumbnail_url", "")
	v.SetDefault("discord.allowed_user_ids", "")
	v.SetDefault("discord.allowed_user_names", "")

	// Storage defaults
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.file_path", "data.json")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "gestionbot")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	// Security defaults
	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "APP_NAME")
	v.BindEnv("app.version", "APP_VERSION")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")

	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Discord
	v.BindEnv("discord.token", "DISCORD_TOKEN")
	v.BindEnv("discord.guild_id", "DISCORD_GUILD_ID")
	v.BindEnv("discord.command_channel", "DISCORD_COMMAND_CHANNEL")
	v.BindEnv("discord.bank_channel", "DISCORD_BANK_CHANNEL")
	v.BindEnv("discord.merchandise_channel", "DISCORD_MERCHANDISE_CHANNEL")
	v.BindEnv("discord.history_channel", "DISCORD_HISTORY_CHANNEL")
	v.BindEnv("discord.status_thumbnail_url", "DISCORD_STATUS_THUMBNAIL_URL")
	v.BindEnv("discord.allowed_user_ids", "DISCORD_ALLOWED_USER_IDS")
	v.BindEnv("discord.allowed_user_names", "DISCORD_ALLOWED_USER_NAMES")

	// Storage
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.file_path", "STORAGE_FILE_PATH")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.ssl_mode", "DB_SSL_MODE")
	v.BindEnv("database.max_open_conns", "DB_MAX_OPEN_CONNS")
	v.BindEnv("database.max_idle_conns", "DB_MAX_IDLE_CONNS")
	v.BindEnv("database.conn_max_lifetime", "DB_CONN_MAX_LIFETIME")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")

	// Security
	v.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	v.BindEnv("metrics.enabled", "ENABLE_METRICS")
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetDSN returns the database connection string
func (cfg *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
