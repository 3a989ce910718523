package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/ports"
)

// documentRow is the single row holding the serialized ledger document.
const documentRowID = 1

// PostgresRepository stores the ledger document as one jsonb row, mirroring
// the full-document-overwrite semantics of the file backend. Schema lives in
// migrations/.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new postgres-backed ledger repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Load(ctx context.Context) (*entities.LedgerDocument, error) {
	const query = `SELECT document FROM ledger_documents WHERE id = $1`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, documentRowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		doc := entities.NewLedgerDocument()
		if err := r.Save(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger document: %w", err)
	}

	doc := entities.NewLedgerDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("parse ledger document: %w", err)
	}
	if doc.Merchandise == nil {
		doc.Merchandise = make(map[string]int64)
	}
	return doc, nil
}

func (r *PostgresRepository) Save(ctx context.Context, doc *entities.LedgerDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal ledger document: %w", err)
	}

	const query = `
		INSERT INTO ledger_documents (id, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, documentRowID, data); err != nil {
		return fmt.Errorf("save ledger document: %w", err)
	}
	return nil
}

var _ ports.LedgerRepository = (*PostgresRepository)(nil)

// JournalRecorder appends history entries to the ledger_journal audit table.
// Only wired when the postgres backend is active.
type JournalRecorder struct {
	db *sqlx.DB
}

// NewJournalRecorder creates a new journal recorder
func NewJournalRecorder(db *sqlx.DB) *JournalRecorder {
	return &JournalRecorder{db: db}
}

func (r *JournalRecorder) Append(ctx context.Context, entry entities.HistoryEntry) error {
	const query = `
		INSERT INTO ledger_journal (id, actor, action, occurred_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, uuid.New(), entry.Actor, entry.Action, entry.At); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

var _ ports.HistoryRecorder = (*JournalRecorder)(nil)
