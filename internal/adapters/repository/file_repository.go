package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/ports"
)

// FileRepository persists the ledger document as one indent-formatted JSON
// file. Every save rewrites the whole file. Callers serialize access through
// the ledger service lock; the repository itself does no locking.
type FileRepository struct {
	path string
}

// NewFileRepository creates a new file-backed ledger repository
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) Load(ctx context.Context) (*entities.LedgerDocument, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		// First run: create and persist the all-zero default
		doc := entities.NewLedgerDocument()
		if err := r.Save(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}

	doc := entities.NewLedgerDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	if doc.Merchandise == nil {
		doc.Merchandise = make(map[string]int64)
	}
	return doc, nil
}

func (r *FileRepository) Save(ctx context.Context, doc *entities.LedgerDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger document: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	return nil
}

var _ ports.LedgerRepository = (*FileRepository)(nil)
