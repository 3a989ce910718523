package services

import (
	"context"
	"errors"
	"testing"

	"github.com/gestionbot/core/internal/domain/entities"
	"github.com/gestionbot/core/internal/infrastructure/logger"
	"github.com/gestionbot/core/internal/infrastructure/metrics"
)

// memRepo is an in-memory LedgerRepository for tests.
type memRepo struct {
	doc      *entities.LedgerDocument
	saves    int
	failSave bool
}

func (r *memRepo) Load(ctx context.Context) (*entities.LedgerDocument, error) {
	if r.doc == nil {
		r.doc = entities.NewLedgerDocument()
	}
	return r.doc.Clone(), nil
}

func (r *memRepo) Save(ctx context.Context, doc *entities.LedgerDocument) error {
	if r.failSave {
		return errors.New("disk full")
	}
	r.doc = doc.Clone()
	r.saves++
	return nil
}

func newTestService(t *testing.T) (*LedgerService, *memRepo) {
	t.Helper()
	repo := &memRepo{}
	svc := NewLedgerService(repo, metrics.New(), logger.NewNop())
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return svc, repo
}

func TestBalanceClampSequences(t *testing.T) {
	type op struct {
		kind   string // "in" or "out"
		amount int64
	}
	tests := []struct {
		name string
		ops  []op
		want int64
	}{
		{"deposit then overdraw clamps", []op{{"in", 500}, {"out", 700}}, 0},
		{"overdraw from zero", []op{{"out", 100}}, 0},
		{"running sum", []op{{"in", 100}, {"in", 250}, {"out", 50}}, 300},
		{"clamp then deposit", []op{{"in", 10}, {"out", 100}, {"in", 42}}, 42},
		{"large values", []op{{"in", 1_000_000_000}, {"out", 1}}, 999_999_999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()

			var got int64
			var err error
			for _, o := range tt.ops {
				if o.kind == "in" {
					got, err = svc.DepositClean(ctx, o.amount)
				} else {
					got, err = svc.WithdrawClean(ctx, o.amount)
				}
				if err != nil {
					t.Fatalf("op %+v: %v", o, err)
				}
			}
			if got != tt.want {
				t.Errorf("balance: got %d, want %d", got, tt.want)
			}
			if got < 0 {
				t.Errorf("balance went negative: %d", got)
			}
		})
	}
}

func TestDirtyBalanceIndependentOfClean(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.DepositClean(ctx, 100); err != nil {
		t.Fatalf("DepositClean: %v", err)
	}
	if _, err := svc.DepositDirty(ctx, 40); err != nil {
		t.Fatalf("DepositDirty: %v", err)
	}
	if _, err := svc.WithdrawDirty(ctx, 90); err != nil {
		t.Fatalf("WithdrawDirty: %v", err)
	}

	doc := svc.Snapshot()
	if doc.Clean != 100 {
		t.Errorf("clean: got %d, want 100", doc.Clean)
	}
	if doc.Dirty != 0 {
		t.Errorf("dirty: got %d, want 0 (clamped)", doc.Dirty)
	}
}

func TestResets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.DepositClean(ctx, 1234); err != nil {
		t.Fatalf("DepositClean: %v", err)
	}
	if _, err := svc.DepositDirty(ctx, 5678); err != nil {
		t.Fatalf("DepositDirty: %v", err)
	}
	if err := svc.ResetClean(ctx); err != nil {
		t.Fatalf("ResetClean: %v", err)
	}
	if err := svc.ResetDirty(ctx); err != nil {
		t.Fatalf("ResetDirty: %v", err)
	}

	doc := svc.Snapshot()
	if doc.Clean != 0 || doc.Dirty != 0 {
		t.Errorf("after resets: clean=%d dirty=%d, want 0/0", doc.Clean, doc.Dirty)
	}
}

func TestCreateDuplicateItemIsRefused(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateItem(ctx, "crates"); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if _, err := svc.AddStock(ctx, "crates", 7); err != nil {
		t.Fatalf("AddStock: %v", err)
	}

	savesBefore := repo.saves
	err := svc.CreateItem(ctx, "crates")
	if !errors.Is(err, entities.ErrItemExists) {
		t.Fatalf("duplicate create: got %v, want ErrItemExists", err)
	}
	if repo.saves != savesBefore {
		t.Errorf("duplicate create persisted: %d saves, want %d", repo.saves, savesBefore)
	}
	if got := svc.Snapshot().Merchandise["crates"]; got != 7 {
		t.Errorf("quantity changed on duplicate create: got %d, want 7", got)
	}
}

func TestItemNamesAreCaseSensitive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateItem(ctx, "Crates"); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := svc.CreateItem(ctx, "crates"); err != nil {
		t.Fatalf("CreateItem lowercase: %v", err)
	}
	if got := len(svc.Snapshot().Merchandise); got != 2 {
		t.Errorf("item count: got %d, want 2", got)
	}
}

func TestDeleteUnknownItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.DeleteItem(ctx, "ghost"); !errors.Is(err, entities.ErrItemNotFound) {
		t.Fatalf("delete unknown: got %v, want ErrItemNotFound", err)
	}
}

func TestDeletedItemStaysGoneUntilRecreated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateItem(ctx, "boxes"); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := svc.DeleteItem(ctx, "boxes"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if _, err := svc.AddStock(ctx, "boxes", 5); !errors.Is(err, entities.ErrItemNotFound) {
		t.Fatalf("AddStock after delete: got %v, want ErrItemNotFound", err)
	}

	if err := svc.CreateItem(ctx, "boxes"); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if got, err := svc.AddStock(ctx, "boxes", 5); err != nil || got != 5 {
		t.Fatalf("AddStock after recreate: got %d, %v", got, err)
	}
}

func TestStockClamp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateItem(ctx, "crates"); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if got, err := svc.AddStock(ctx, "crates", 10); err != nil || got != 10 {
		t.Fatalf("AddStock: got %d, %v", got, err)
	}
	if got, err := svc.RemoveStock(ctx, "crates", 15); err != nil || got != 0 {
		t.Fatalf("RemoveStock overdraw: got %d, %v; want 0 (clamped)", got, err)
	}
}

func TestResetItemAndResetAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for name, qty := range map[string]int64{"crates": 10, "boxes": 3} {
		if err := svc.CreateItem(ctx, name); err != nil {
			t.Fatalf("CreateItem %s: %v", name, err)
		}
		if _, err := svc.AddStock(ctx, name, qty); err != nil {
			t.Fatalf("AddStock %s: %v", name, err)
		}
	}

	if err := svc.ResetItem(ctx, "crates"); err != nil {
		t.Fatalf("ResetItem: %v", err)
	}
	if got := svc.Snapshot().Merchandise["crates"]; got != 0 {
		t.Errorf("crates after reset: got %d, want 0", got)
	}
	if got := svc.Snapshot().Merchandise["boxes"]; got != 3 {
		t.Errorf("boxes untouched: got %d, want 3", got)
	}

	if err := svc.ResetItem(ctx, "ghost"); !errors.Is(err, entities.ErrItemNotFound) {
		t.Fatalf("reset unknown: got %v, want ErrItemNotFound", err)
	}

	if err := svc.ResetAllItems(ctx); err != nil {
		t.Fatalf("ResetAllItems: %v", err)
	}
	doc := svc.Snapshot()
	if len(doc.Merchandise) != 2 {
		t.Errorf("item set membership changed: %d items, want 2", len(doc.Merchandise))
	}
	for name, qty := range doc.Merchandise {
		if qty != 0 {
			t.Errorf("%s: got %d, want 0", name, qty)
		}
	}
}

func TestFailedSaveLeavesMemoryUnchanged(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.DepositClean(ctx, 500); err != nil {
		t.Fatalf("DepositClean: %v", err)
	}

	repo.failSave = true
	if _, err := svc.DepositClean(ctx, 100); err == nil {
		t.Fatal("expected save failure to fail the command")
	}

	// In-memory and durable copies both still hold the pre-failure state.
	if got := svc.Snapshot().Clean; got != 500 {
		t.Errorf("in-memory balance after failed save: got %d, want 500", got)
	}
	if repo.doc.Clean != 500 {
		t.Errorf("durable balance after failed save: got %d, want 500", repo.doc.Clean)
	}
}

func TestEverySuccessfulMutationPersists(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	before := repo.saves
	if _, err := svc.DepositClean(ctx, 1); err != nil {
		t.Fatalf("DepositClean: %v", err)
	}
	if err := svc.CreateItem(ctx, "x"); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := svc.ResetAllItems(ctx); err != nil {
		t.Fatalf("ResetAllItems: %v", err)
	}
	if got := repo.saves - before; got != 3 {
		t.Errorf("saves: got %d, want 3 (one per mutation, no batching)", got)
	}
}

func TestSetStatusMessageRefsPersistImmediately(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if err := svc.SetBankMessageRef(ctx, "111"); err != nil {
		t.Fatalf("SetBankMessageRef: %v", err)
	}
	if err := svc.SetMerchandiseMessageRef(ctx, "222"); err != nil {
		t.Fatalf("SetMerchandiseMessageRef: %v", err)
	}

	if repo.doc.StatusMessages.Bank != "111" || repo.doc.StatusMessages.Merchandise != "222" {
		t.Errorf("persisted refs: got %+v", repo.doc.StatusMessages)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateItem(ctx, "crates"); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	snap := svc.Snapshot()
	snap.Merchandise["crates"] = 999
	snap.Clean = 999

	doc := svc.Snapshot()
	if doc.Merchandise["crates"] != 0 || doc.Clean != 0 {
		t.Error("mutating a snapshot leaked into the service document")
	}
}
