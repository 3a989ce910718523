package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/infrastructure/logger"
	"github.com/gestionbot/core/internal/infrastructure/metrics"
	"github.com/gestionbot/core/internal/ports"
)

// LedgerService owns the in-memory ledger document and serializes every
// mutation behind one lock. A mutation is applied to a clone, persisted, and
// only then swapped into memory, so a failed save leaves both the in-memory
// and the durable copy at the previous state.
type LedgerService struct {
	repo    ports.LedgerRepository
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	doc *entities.LedgerDocument
}

// NewLedgerService creates a new ledger service
func NewLedgerService(repo ports.LedgerRepository, m *metrics.Metrics, log *logger.Logger) *LedgerService {
	return &LedgerService{
		repo:    repo,
		metrics: m,
		logger:  log,
	}
}

// Init loads the persisted document into memory. Must be called once before
// any mutation.
func (s *LedgerService) Init(ctx context.Context) error {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger document: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.logger.Info("Ledger document loaded",
		"clean", doc.Clean,
		"dirty", doc.Dirty,
		"items", len(doc.Merchandise),
	)
	return nil
}

// mutate runs fn on a clone of the document under the lock, persists the
// clone and swaps it in on success.
func (s *LedgerService) mutate(ctx context.Context, fn func(doc *entities.LedgerDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}

	start := time.Now()
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save ledger document: %w", err)
	}
	s.metrics.ObserveSave(time.Since(start))

	s.doc = next
	return nil
}

// DepositClean adds amount to the clean balance and returns the new balance
func (s *LedgerService) DepositClean(ctx context.Context, amount int64) (int64, error) {
	var balance int64
	err := s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		doc.Clean += amount
		balance = doc.Clean
		return nil
	})
	return balance, err
}

// WithdrawClean subtracts amount from the clean balance, clamping at zero
func (s *LedgerService) WithdrawClean(ctx context.Context, amount int64) (int64, error) {
	var balance int64
	err := s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		doc.Clean = clamp(doc.Clean - amount)
		balance = doc.Clean
		return nil
	})
	return balance, err
}

// DepositDirty adds amount to the dirty balance and returns the new balance
func (s *LedgerService) DepositDirty(ctx context.Context, amount int64) (int64, error) {
	var balance int64
	err := s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		doc.Dirty += amount
		balance = doc.Dirty
		return nil
	})
	return balance, err
}

// WithdrawDirty subtracts amount from the dirty balance, clamping at zero
func (s *LedgerService) WithdrawDirty(ctx context.Context, amount int64) (int64, error) {
	var balance int64
	err := s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		doc.Dirty = clamp(doc.Dirty - amount)
		balance = doc.Dirty
		return nil
	})
	return balance, err
}

// CreateItem registers a new merchandise name at quantity zero. Creating a
// name that already exists is refused, not overwritten.
func (s *LedgerService) CreateItem(ctx context.Context, name string) error {
	return s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		if _, exists := doc.Merchandise[name]; exists {
			return entities.ErrItemExists
		}
		doc.Merchandise[name] = 0
		return nil
	})
}

// DeleteItem removes a merchandise entry entirely
func (s *LedgerService) DeleteItem(ctx context.Context, name string) error {
	return s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		if _, exists := doc.Merchandise[name]; !exists {
			return entities.ErrItemNotFound
		}
		delete(doc.Merchandise, name)
		return nil
	})
}

// AddStock adds qty to an existing item and returns the new quantity
func (s *LedgerService) AddStock(ctx context.Context, name string, qty int64) (int64, error) {
	var current int64
	err := s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		if _, exists := doc.Merchandise[name]; !exists {
			return entities.ErrItemNotFound
		}
		doc.Merchandise[name] += qty
		current = doc.Merchandise[name]
		return nil
	})
	return current, err
}

// RemoveStock subtracts qty from an existing item, clamping at zero
func (s *LedgerService) RemoveStock(ctx context.Context, name string, qty int64) (int64, error) {
	var current int64
	err := s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		if _, exists := doc.Merchandise[name]; !exists {
			return entities.ErrItemNotFound
		}
		doc.Merchandise[name] = clamp(doc.Merchandise[name] - qty)
		current = doc.Merchandise[name]
		return nil
	})
	return current, err
}

// ResetClean sets the clean balance to zero
func (s *LedgerService) ResetClean(ctx context.Context) error {
	return s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		doc.Clean = 0
		return nil
	})
}

// ResetDirty sets the dirty balance to zero
func (s *LedgerService) ResetDirty(ctx context.Context) error {
	return s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		doc.Dirty = 0
		return nil
	})
}

// ResetItem sets one item quantity to zero
func (s *LedgerService) ResetItem(ctx context.Context, name string) error {
	return s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		if _, exists := doc.Merchandise[name]; !exists {
			return entities.ErrItemNotFound
		}
		doc.Merchandise[name] = 0
		return nil
	})
}

// ResetAllItems sets every item quantity to zero, keeping the item set
func (s *LedgerService) ResetAllItems(ctx context.Context) error {
	return s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		for name := range doc.Merchandise {
			doc.Merchandise[name] = 0
		}
		return nil
	})
}

// SetBankMessageRef records the bank status message id and persists it
func (s *LedgerService) SetBankMessageRef(ctx context.Context, ref entities.MessageRef) error {
	return s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		doc.StatusMessages.Bank = ref
		return nil
	})
}

// SetMerchandiseMessageRef records the merchandise status message id and
// persists it
func (s *LedgerService) SetMerchandiseMessageRef(ctx context.Context, ref entities.MessageRef) error {
	return s.mutate(ctx, func(doc *entities.LedgerDocument) error {
		doc.StatusMessages.Merchandise = ref
		return nil
	})
}

// Snapshot returns a copy of the current document for rendering
func (s *LedgerService) Snapshot() entities.LedgerDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.doc.Clone()
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
