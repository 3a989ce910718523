package ports

import (
	"context"

	"github.com/gestionbot/core/internal/domain/entities"
)

// LedgerRepository defines the interface for persisting the ledger document.
// Every save is a full-document overwrite; there is no partial update.
type LedgerRepository interface {
	// Load returns the persisted document, creating and persisting the
	// all-zero default when no document exists yet.
	Load(ctx context.Context) (*entities.LedgerDocument, error)
	// Save overwrites the persisted document.
	Save(ctx context.Context, doc *entities.LedgerDocument) error
}

// HistoryRecorder appends one immutable line per committed mutation.
// Implementations are best-effort: a failed append never undoes the
// mutation that produced it.
type HistoryRecorder interface {
	Append(ctx context.Context, entry entities.HistoryEntry) error
}
