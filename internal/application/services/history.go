package services

import (
	"context"

	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/infrastructure/logger"
	"github.com/gestionbot/core/internal/ports"
)

// FanoutRecorder forwards each history entry to every configured recorder
// (the history channel, and the journal table when the postgres backend is
// active). Recording is best-effort: a failed append is logged and swallowed,
// the mutation it describes is already committed.
type FanoutRecorder struct {
	recorders []ports.HistoryRecorder
	logger    *logger.Logger
}

// NewFanoutRecorder creates a recorder fanning out to recs
func NewFanoutRecorder(log *logger.Logger, recs ...ports.HistoryRecorder) *FanoutRecorder {
	return &FanoutRecorder{recorders: recs, logger: log}
}

// Append forwards the entry to every recorder
func (f *FanoutRecorder) Append(ctx context.Context, entry entities.HistoryEntry) error {
	for _, rec := range f.recorders {
		if err := rec.Append(ctx, entry); err != nil {
			f.logger.Warnw("History append failed",
				"actor", entry.Actor,
				"action", entry.Action,
				"error", err,
			)
		}
	}
	return nil
}
