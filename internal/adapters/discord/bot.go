package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/gestionbot/core/internal/application/services"
	"github.com/gestionbot/core/internal/infrastructure/config"
	"github.com/gestionbot/core/internal/infrastructure/logger"
	"github.com/gestionbot/core/internal/infrastructure/metrics"
	"github.com/gestionbot/core/internal/ports"
)

// Bot wires the Discord session to the ledger service: it registers the
// slash commands, guards and dispatches interactions, records history and
// keeps the status surfaces fresh.
type Bot struct {
	session   *discordgo.Session
	cfg       config.DiscordConfig
	logger    *logger.Logger
	metrics   *metrics.Metrics
	ledger    *services.LedgerService
	access    *services.AccessService
	recorder  ports.HistoryRecorder
	publisher *StatusPublisher
	handlers  map[string]commandHandler
}

// NewBot creates the bot and attaches its gateway handlers. The session is
// not opened until Start. History entries fan out to the guild history
// channel plus any extra recorders (the postgres journal, when active).
func NewBot(
	cfg config.DiscordConfig,
	ledger *services.LedgerService,
	access *services.AccessService,
	m *metrics.Metrics,
	log *logger.Logger,
	extraRecorders ...ports.HistoryRecorder,
) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	componentLog := log.WithComponent("discord")
	recorders := append([]ports.HistoryRecorder{NewChannelRecorder(session, cfg)}, extraRecorders...)

	b := &Bot{
		session:  session,
		cfg:      cfg,
		logger:   componentLog,
		metrics:  m,
		ledger:   ledger,
		access:   access,
		recorder: services.NewFanoutRecorder(componentLog, recorders...),
	}
	b.publisher = NewStatusPublisher(session, cfg, ledger, m, b.logger)
	b.handlers = b.commandHandlers()

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)

	return b, nil
}

// Start opens the gateway connection and registers the slash commands. When
// GuildID is empty the commands are registered globally.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	appID := b.session.State.User.ID
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, commandDefinitions())
	if err != nil {
		return fmt.Errorf("register slash commands: %w", err)
	}
	b.logger.Info("Slash commands registered", "count", len(registered))

	return nil
}

// Stop closes the gateway connection
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Discord session ready",
		"user", r.User.Username,
		"guilds", len(r.Guilds),
	)

	// Ensure both status messages exist and reflect the current document
	// in every guild the bot is a member of.
	ctx := context.Background()
	for _, g := range r.Guilds {
		b.publisher.Refresh(ctx, g.ID)
	}
}

// channelName resolves the name of the channel an interaction came from,
// preferring the session state cache over a REST call.
func (b *Bot) channelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		return ""
	}
	return ch.Name
}
