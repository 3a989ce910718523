package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gestionbot/core/internal/domain/entities"
)

// commandResult carries the synchronous acknowledgment and, for committed
// mutations, the history description ("<actor> <action>").
type commandResult struct {
	reply  string
	action string
}

type commandHandler func(ctx context.Context, opts optionIndex) (commandResult, error)

// commandDefinitions declares the full slash command surface. All commands
// are restricted to the allow-list and the command channel.
func commandDefinitions() []*discordgo.ApplicationCommand {
	amount := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: desc,
			Required:    true,
		}
	}
	name := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "name",
			Description: desc,
			Required:    true,
		}
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "clean-money-in",
			Description: "Entrée d'argent propre",
			Options:     []*discordgo.ApplicationCommandOption{amount("Montant en $")},
		},
		{
			Name:        "clean-money-out",
			Description: "Sortie d'argent propre",
			Options:     []*discordgo.ApplicationCommandOption{amount("Montant en $")},
		},
		{
			Name:        "dirty-money-in",
			Description: "Entrée d'argent sale",
			Options:     []*discordgo.ApplicationCommandOption{amount("Montant en $")},
		},
		{
			Name:        "dirty-money-out",
			Description: "Sortie d'argent sale",
			Options:     []*discordgo.ApplicationCommandOption{amount("Montant en $")},
		},
		{
			Name:        "new-item",
			Description: "Ajouter un nouveau type de marchandise",
			Options:     []*discordgo.ApplicationCommandOption{name("Nom de la marchandise à ajouter")},
		},
		{
			Name:        "delete-item",
			Description: "Supprimer une marchandise et son stock",
			Options:     []*discordgo.ApplicationCommandOption{name("Nom de la marchandise à supprimer")},
		},
		{
			Name:        "item-in",
			Description: "Entrée de marchandise (nom + quantité)",
			Options: []*discordgo.ApplicationCommandOption{
				name("Nom de la marchandise"),
				amount("Quantité à ajouter (entier)"),
			},
		},
		{
			Name:        "item-out",
			Description: "Sortie de marchandise (nom + quantité)",
			Options: []*discordgo.ApplicationCommandOption{
				name("Nom de la marchandise"),
				amount("Quantité à retirer (entier)"),
			},
		},
		{
			Name:        "reset-clean",
			Description: "Remettre à zéro l'argent propre",
		},
		{
			Name:        "reset-dirty",
			Description: "Remettre à zéro l'argent sale",
		},
		{
			Name:        "reset-item",
			Description: "Remettre à zéro une marchandise (nom)",
			Options:     []*discordgo.ApplicationCommandOption{name("Nom de la marchandise")},
		},
		{
			Name:        "reset-all-items",
			Description: "Remettre à zéro toutes les marchandises",
		},
	}
}

// commandHandlers builds the dispatch table. Called once at construction.
func (b *Bot) commandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"clean-money-in":  b.cmdCleanMoneyIn,
		"clean-money-out": b.cmdCleanMoneyOut,
		"dirty-money-in":  b.cmdDirtyMoneyIn,
		"dirty-money-out": b.cmdDirtyMoneyOut,
		"new-item":        b.cmdNewItem,
		"delete-item":     b.cmdDeleteItem,
		"item-in":         b.cmdItemIn,
		"item-out":        b.cmdItemOut,
		"reset-clean":     b.cmdResetClean,
		"reset-dirty":     b.cmdResetDirty,
		"reset-item":      b.cmdResetItem,
		"reset-all-items": b.cmdResetAllItems,
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	handler, ok := b.handlers[data.Name]
	if !ok {
		return
	}

	ctx := context.Background()
	actorID, actorName := interactionActor(i)

	// Access guard: allow-list and command channel, distinct reasons.
	if err := b.access.Authorize(actorID, actorName, b.channelName(s, i.ChannelID)); err != nil {
		b.metrics.ObserveCommand(data.Name, "rejected")
		b.respond(s, i, rejectionMessage(err, b.cfg.CommandChannel), true)
		return
	}

	result, err := handler(ctx, indexOptions(data.Options))
	if err != nil {
		if result.reply != "" {
			// Domain refusal (duplicate name, unknown item): reported to
			// the caller, no mutation, no history entry.
			b.metrics.ObserveCommand(data.Name, "domain_error")
			b.respond(s, i, result.reply, false)
			return
		}
		b.metrics.ObserveCommand(data.Name, "error")
		b.logger.Errorw("Command failed", "command", data.Name, "user_id", actorID, "error", err)
		b.respond(s, i, "❌ Une erreur interne est survenue.", true)
		return
	}

	b.metrics.ObserveCommand(data.Name, "ok")
	b.logger.LogUserAction(actorID, data.Name, map[string]interface{}{"guild_id": i.GuildID})

	// The mutation is committed: acknowledge, then record and refresh
	// best-effort.
	b.respond(s, i, result.reply, false)

	_ = b.recorder.Append(ctx, entities.HistoryEntry{
		At:      time.Now(),
		Actor:   actorName,
		Action:  result.action,
		GuildID: i.GuildID,
	})

	b.publisher.Refresh(ctx, i.GuildID)
}

func (b *Bot) cmdCleanMoneyIn(ctx context.Context, opts optionIndex) (commandResult, error) {
	amount := opts.Int("amount")
	if _, err := b.ledger.DepositClean(ctx, amount); err != nil {
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Ajouté %s $ à l'argent propre.", formatAmount(amount)),
		action: fmt.Sprintf("a ajouté %s $ à l'argent propre", formatAmount(amount)),
	}, nil
}

func (b *Bot) cmdCleanMoneyOut(ctx context.Context, opts optionIndex) (commandResult, error) {
	amount := opts.Int("amount")
	if _, err := b.ledger.WithdrawClean(ctx, amount); err != nil {
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Retiré %s $ de l'argent propre.", formatAmount(amount)),
		action: fmt.Sprintf("a retiré %s $ de l'argent propre", formatAmount(amount)),
	}, nil
}

func (b *Bot) cmdDirtyMoneyIn(ctx context.Context, opts optionIndex) (commandResult, error) {
	amount := opts.Int("amount")
	if _, err := b.ledger.DepositDirty(ctx, amount); err != nil {
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Ajouté %s $ à l'argent sale.", formatAmount(amount)),
		action: fmt.Sprintf("a ajouté %s $ à l'argent sale", formatAmount(amount)),
	}, nil
}

func (b *Bot) cmdDirtyMoneyOut(ctx context.Context, opts optionIndex) (commandResult, error) {
	amount := opts.Int("amount")
	if _, err := b.ledger.WithdrawDirty(ctx, amount); err != nil {
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Retiré %s $ de l'argent sale.", formatAmount(amount)),
		action: fmt.Sprintf("a retiré %s $ de l'argent sale", formatAmount(amount)),
	}, nil
}

func (b *Bot) cmdNewItem(ctx context.Context, opts optionIndex) (commandResult, error) {
	name := opts.String("name")
	if err := b.ledger.CreateItem(ctx, name); err != nil {
		if errors.Is(err, entities.ErrItemExists) {
			return commandResult{reply: fmt.Sprintf("⚠️ La marchandise `%s` existe déjà.", name)}, err
		}
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Marchandise `%s` ajoutée avec quantité 0.", name),
		action: fmt.Sprintf("a ajouté la marchandise `%s`", name),
	}, nil
}

func (b *Bot) cmdDeleteItem(ctx context.Context, opts optionIndex) (commandResult, error) {
	name := opts.String("name")
	if err := b.ledger.DeleteItem(ctx, name); err != nil {
		if errors.Is(err, entities.ErrItemNotFound) {
			return commandResult{reply: fmt.Sprintf("⚠️ La marchandise `%s` n'existe pas.", name)}, err
		}
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Marchandise `%s` supprimée.", name),
		action: fmt.Sprintf("a supprimé la marchandise `%s`", name),
	}, nil
}

func (b *Bot) cmdItemIn(ctx context.Context, opts optionIndex) (commandResult, error) {
	name := opts.String("name")
	qty := opts.Int("amount")
	if _, err := b.ledger.AddStock(ctx, name, qty); err != nil {
		if errors.Is(err, entities.ErrItemNotFound) {
			return commandResult{reply: fmt.Sprintf("⚠️ La marchandise `%s` n'existe pas. Utilisez /new-item pour l'ajouter.", name)}, err
		}
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Ajouté %d x `%s` au stock.", qty, name),
		action: fmt.Sprintf("a ajouté %d x `%s`", qty, name),
	}, nil
}

func (b *Bot) cmdItemOut(ctx context.Context, opts optionIndex) (commandResult, error) {
	name := opts.String("name")
	qty := opts.Int("amount")
	if _, err := b.ledger.RemoveStock(ctx, name, qty); err != nil {
		if errors.Is(err, entities.ErrItemNotFound) {
			return commandResult{reply: fmt.Sprintf("⚠️ La marchandise `%s` n'existe pas.", name)}, err
		}
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Retiré %d x `%s` du stock.", qty, name),
		action: fmt.Sprintf("a retiré %d x `%s`", qty, name),
	}, nil
}

func (b *Bot) cmdResetClean(ctx context.Context, opts optionIndex) (commandResult, error) {
	if err := b.ledger.ResetClean(ctx); err != nil {
		return commandResult{}, err
	}
	return commandResult{
		reply:  "✅ Argent propre remis à zéro.",
		action: "a remis à zéro l'argent propre",
	}, nil
}

func (b *Bot) cmdResetDirty(ctx context.Context, opts optionIndex) (commandResult, error) {
	if err := b.ledger.ResetDirty(ctx); err != nil {
		return commandResult{}, err
	}
	return commandResult{
		reply:  "✅ Argent sale remis à zéro.",
		action: "a remis à zéro l'argent sale",
	}, nil
}

func (b *Bot) cmdResetItem(ctx context.Context, opts optionIndex) (commandResult, error) {
	name := opts.String("name")
	if err := b.ledger.ResetItem(ctx, name); err != nil {
		if errors.Is(err, entities.ErrItemNotFound) {
			return commandResult{reply: fmt.Sprintf("⚠️ La marchandise `%s` n'existe pas.", name)}, err
		}
		return commandResult{}, err
	}
	return commandResult{
		reply:  fmt.Sprintf("✅ Quantité de `%s` remise à zéro.", name),
		action: fmt.Sprintf("a remis à zéro `%s`", name),
	}, nil
}

func (b *Bot) cmdResetAllItems(ctx context.Context, opts optionIndex) (commandResult, error) {
	if err := b.ledger.ResetAllItems(ctx); err != nil {
		return commandResult{}, err
	}
	return commandResult{
		reply:  "✅ Toutes les marchandises ont été remises à zéro.",
		action: "a remis à zéro toutes les marchandises",
	}, nil
}

// respond sends the synchronous acknowledgment for an interaction.
// Rejections and internal errors are ephemeral.
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Warnw("Interaction response failed", "error", err)
	}
}

func rejectionMessage(err error, commandChannel string) string {
	if errors.Is(err, entities.ErrWrongChannel) {
		return fmt.Sprintf("❌ Les commandes doivent être utilisées dans le salon #%s.", commandChannel)
	}
	return "❌ Vous n'êtes pas autorisé à utiliser cette commande."
}

// interactionActor returns the id and username of the invoking user,
// whether the command came from a guild or a DM.
func interactionActor(i *discordgo.InteractionCreate) (id, name string) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID, i.Member.User.Username
	}
	if i.User != nil {
		return i.User.ID, i.User.Username
	}
	return "", ""
}

// optionIndex gives named access to interaction options.
type optionIndex map[string]*discordgo.ApplicationCommandInteractionDataOption

func indexOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) optionIndex {
	idx := make(optionIndex, len(opts))
	for _, opt := range opts {
		idx[opt.Name] = opt
	}
	return idx
}

func (o optionIndex) Int(name string) int64 {
	if opt, ok := o[name]; ok {
		return opt.IntValue()
	}
	return 0
}

func (o optionIndex) String(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}
