package services

import (
	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/infrastructure/config"
)

// AccessService decides whether an actor+channel pair may invoke a mutating
// command. The policy is injected from configuration: an allow-list of user
// ids, a deprecated username fallback list, and one permitted command
// channel. There is no rate limiting and no cooldown.
type AccessService struct {
	allowedIDs     map[string]struct{}
	allowedNames   map[string]struct{}
	commandChannel string
}

// NewAccessService builds the guard from the configured policy
func NewAccessService(cfg config.DiscordConfig) *AccessService {
	ids := make(map[string]struct{}, len(cfg.AllowedUserIDs))
	for _, id := range cfg.AllowedUserIDs {
		ids[id] = struct{}{}
	}
	names := make(map[string]struct{}, len(cfg.AllowedUserNames))
	for _, name := range cfg.AllowedUserNames {
		names[name] = struct{}{}
	}
	return &AccessService{
		allowedIDs:     ids,
		allowedNames:   names,
		commandChannel: cfg.CommandChannel,
	}
}

// Authorize returns nil when the actor may proceed, entities.ErrNotAuthorized
// when the actor is not on the allow-list, and entities.ErrWrongChannel when
// the invocation came from outside the command channel. Both failures refuse
// the command; only the user-facing reason differs.
func (s *AccessService) Authorize(userID, username, channelName string) error {
	if !s.isAllowedUser(userID, username) {
		return entities.ErrNotAuthorized
	}
	if channelName != s.commandChannel {
		return entities.ErrWrongChannel
	}
	return nil
}

func (s *AccessService) isAllowedUser(userID, username string) bool {
	if _, ok := s.allowedIDs[userID]; ok {
		return true
	}
	// Legacy fallback by exact username. Deprecated: ids are stable,
	// usernames are not.
	_, ok := s.allowedNames[username]
	return ok
}
