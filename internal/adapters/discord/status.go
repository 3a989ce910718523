package discord

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gestionbot/core/internal/application/services"
	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/infrastructure/config"
	"github.com/gestionbot/core/internal/infrastructure/logger"
	"github.com/gestionbot/core/internal/infrastructure/metrics"
)

const (
	bankPlaceholder  = "▶ Chargement des stats banque..."
	merchPlaceholder = "▶ Chargement des stats marchandises..."
)

// StatusPublisher keeps the two permanent status messages consistent with
// the ledger document: fetch the recorded message, recreate it when it is
// gone, then overwrite its content. Refreshes are best-effort; a failure is
// repaired by the next one.
type StatusPublisher struct {
	session *discordgo.Session
	cfg     config.DiscordConfig
	ledger  *services.LedgerService
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewStatusPublisher creates a new status publisher
func NewStatusPublisher(
	session *discordgo.Session,
	cfg config.DiscordConfig,
	ledger *services.LedgerService,
	m *metrics.Metrics,
	log *logger.Logger,
) *StatusPublisher {
	return &StatusPublisher{
		session: session,
		cfg:     cfg,
		ledger:  ledger,
		metrics: m,
		logger:  log,
	}
}

// Refresh re-renders both status surfaces for one guild and reports the
// per-surface outcome.
func (p *StatusPublisher) Refresh(ctx context.Context, guildID string) (bank, merch entities.RefreshResult) {
	doc := p.ledger.Snapshot()

	bank = p.refreshSurface(ctx, guildID,
		p.cfg.BankChannel,
		doc.StatusMessages.Bank,
		bankPlaceholder,
		renderBankEmbed(&doc, p.cfg.StatusThumbnailURL),
		p.ledger.SetBankMessageRef,
	)
	merch = p.refreshSurface(ctx, guildID,
		p.cfg.MerchandiseChannel,
		doc.StatusMessages.Merchandise,
		merchPlaceholder,
		renderMerchandiseEmbed(&doc, p.cfg.StatusThumbnailURL),
		p.ledger.SetMerchandiseMessageRef,
	)

	p.metrics.ObserveRefresh(bank)
	p.metrics.ObserveRefresh(merch)
	return bank, merch
}

func (p *StatusPublisher) refreshSurface(
	ctx context.Context,
	guildID, channelName string,
	ref entities.MessageRef,
	placeholder string,
	embed *discordgo.MessageEmbed,
	setRef func(context.Context, entities.MessageRef) error,
) entities.RefreshResult {
	channel, err := findTextChannel(p.session, guildID, channelName)
	if err != nil {
		p.logger.Warnw("Status channel unavailable", "channel", channelName, "error", err)
		return entities.RefreshFailed
	}

	recreated := false
	messageID := string(ref)
	if !ref.IsZero() {
		// Any fetch failure (deleted, inaccessible) means the recorded
		// message is gone and a new one is created.
		if _, err := p.session.ChannelMessage(channel.ID, messageID); err != nil {
			messageID = ""
		}
	} else {
		messageID = ""
	}

	if messageID == "" {
		msg, err := p.session.ChannelMessageSend(channel.ID, placeholder)
		if err != nil {
			p.logger.Warnw("Status message create failed", "channel", channelName, "error", err)
			return entities.RefreshFailed
		}
		messageID = msg.ID
		recreated = true
		// Persist the new ref immediately so a crash before the next
		// mutation does not orphan the message.
		if err := setRef(ctx, entities.MessageRef(msg.ID)); err != nil {
			p.logger.Errorw("Status message ref persist failed", "channel", channelName, "error", err)
		}
	}

	if _, err := p.session.ChannelMessageEditComplex(statusEdit(channel.ID, messageID, embed)); err != nil {
		p.logger.Warnw("Status message edit failed", "channel", channelName, "error", err)
		return entities.RefreshFailed
	}

	if recreated {
		return entities.RefreshRecreated
	}
	return entities.RefreshRefreshed
}

// statusEdit builds the overwrite for a status message. Content is set to
// the empty string, not left nil, so the creation placeholder does not
// survive the first render.
func statusEdit(channelID, messageID string, embed *discordgo.MessageEmbed) *discordgo.MessageEdit {
	return discordgo.NewMessageEdit(channelID, messageID).
		SetContent("").
		SetEmbeds([]*discordgo.MessageEmbed{embed})
}

// renderBankEmbed builds the bank surface: both balances with thousands
// separators.
func renderBankEmbed(doc *entities.LedgerDocument, thumbnailURL string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Banque — États des fonds",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Argent propre", Value: formatAmount(doc.Clean) + " $", Inline: true},
			{Name: "Argent sale", Value: formatAmount(doc.Dirty) + " $", Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Dernière mise à jour"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if thumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnailURL}
	}
	return embed
}

// renderMerchandiseEmbed builds the merchandise surface: every item with its
// quantity in stable name order, or an explicit empty indicator.
func renderMerchandiseEmbed(doc *entities.LedgerDocument, thumbnailURL string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "Marchandises — Stocks",
		Footer:    &discordgo.MessageEmbedFooter{Text: "Dernière mise à jour"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if thumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnailURL}
	}

	if len(doc.Merchandise) == 0 {
		embed.Description = "Aucune marchandise enregistrée"
		return embed
	}

	names := make([]string, 0, len(doc.Merchandise))
	for name := range doc.Merchandise {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  strconv.FormatInt(doc.Merchandise[name], 10),
			Inline: true,
		})
	}
	return embed
}

// formatAmount groups digits by thousands: 1234567 -> "1,234,567".
func formatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	n := len(s)
	if n > 3 {
		grouped := make([]byte, 0, n+n/3)
		lead := n % 3
		if lead > 0 {
			grouped = append(grouped, s[:lead]...)
		}
		for i := lead; i < n; i += 3 {
			if len(grouped) > 0 {
				grouped = append(grouped, ',')
			}
			grouped = append(grouped, s[i:i+3]...)
		}
		s = string(grouped)
	}

	if neg {
		return "-" + s
	}
	return s
}
