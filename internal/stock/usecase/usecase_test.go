package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/pkg/logger"
	"github.com/bengkelos/inventory-service/internal/sequence"
	"github.com/bengkelos/inventory-service/internal/stock"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
	"github.com/bengkelos/inventory-service/internal/stock/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const partID = "11111111-1111-1111-1111-111111111111"

func newFixture(t *testing.T) (*memory.MemoryRepository, stock.UseCase) {
	t.Helper()
	repo := memory.NewMemoryRepository()
	repo.SeedPart(model.Part{
		BaseModel: model.BaseModel{ID: partID, CreatedAt: time.Now(), UpdatedAt: time.Now()},
		Name:      "brake pad",
		MinStock:  3,
	})
	uc := NewStockUseCase(repo, sequence.NewMemoryGenerator(), nil, nil, logger.NewNop())
	return repo, uc
}

func seedLot(repo *memory.MemoryRepository, id string, createdAt time.Time, qty int64, price int64) {
	repo.SeedLot(model.Lot{
		BaseModel:     model.BaseModel{ID: id, CreatedAt: createdAt, UpdatedAt: createdAt},
		PartID:        partID,
		PurchasedQty:  qty,
		QtyRemaining:  qty,
		PurchasePrice: decimal.NewFromInt(price),
	})
}

func remainingByLot(t *testing.T, repo *memory.MemoryRepository) map[string]int64 {
	t.Helper()
	lots, err := repo.ListLots(context.Background(), partID)
	require.NoError(t, err)
	out := map[string]int64{}
	for _, l := range lots {
		out[l.ID] = l.QtyRemaining
	}
	return out
}

func movementCount(t *testing.T, repo *memory.MemoryRepository) int {
	t.Helper()
	_, total, err := repo.ListMovements(context.Background(), &dto.MovementFilters{PartID: partID})
	require.NoError(t, err)
	return total
}

// The scenario from the stock-accounting contract: two lots, partial drain of
// the second, exact reversal, then an over-ask that must not touch anything.
func TestAllocateReverseRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, uc := newFixture(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedLot(repo, "lot-a", base, 10, 100)
	seedLot(repo, "lot-b", base.Add(time.Hour), 10, 120)

	allocation, err := uc.AllocateFIFO(ctx, &dto.AllocateInput{
		PartID:        partID,
		Quantity:      15,
		ReferenceType: "repair",
		ReferenceID:   "RJ-0007",
		UserID:        "mechanic-1",
	})
	require.NoError(t, err)
	require.Equal(t, []model.AllocationEntry{
		{LotID: "lot-a", UseQty: 10, UnitCost: decimal.NewFromInt(100)},
		{LotID: "lot-b", UseQty: 5, UnitCost: decimal.NewFromInt(120)},
	}, allocation.Entries)
	require.Equal(t, int64(15), allocation.TotalQty())
	require.Equal(t, map[string]int64{"lot-a": 0, "lot-b": 5}, remainingByLot(t, repo))

	err = uc.ReverseAllocation(ctx, &dto.ReverseInput{
		PartID:        partID,
		Entries:       allocation.Entries,
		ReferenceType: "repair",
		ReferenceID:   "RJ-0007",
		Notes:         "usage line removed",
		UserID:        "mechanic-1",
	})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"lot-a": 10, "lot-b": 10}, remainingByLot(t, repo))

	// Over-ask: both lots must stay untouched and no ledger entry appears.
	before := movementCount(t, repo)
	_, err = uc.AllocateFIFO(ctx, &dto.AllocateInput{PartID: partID, Quantity: 21})
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.Equal(t, map[string]int64{"lot-a": 10, "lot-b": 10}, remainingByLot(t, repo))
	require.Equal(t, before, movementCount(t, repo))
}

func TestAllocateLedgerEntry(t *testing.T) {
	ctx := context.Background()
	repo, uc := newFixture(t)
	seedLot(repo, "lot-a", time.Now(), 10, 100)

	_, err := uc.AllocateFIFO(ctx, &dto.AllocateInput{
		PartID:        partID,
		Quantity:      4,
		ReferenceType: "repair",
		ReferenceID:   "RJ-0001",
		UserID:        "mechanic-1",
	})
	require.NoError(t, err)

	movements, total, err := repo.ListMovements(ctx, &dto.MovementFilters{PartID: partID})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	mv := movements[0]
	require.Equal(t, model.MovementUse, mv.MovementType)
	require.Equal(t, "MV-000001", mv.Code)
	require.Equal(t, int64(-4), mv.QuantityChange)
	require.Equal(t, int64(10), mv.QuantityBefore)
	require.Equal(t, int64(6), mv.QuantityAfter)
	require.Len(t, mv.Breakdown, 1)
	require.Equal(t, "lot-a", mv.Breakdown[0].LotID)
	require.NotNil(t, mv.ReferenceType)
	require.Equal(t, "repair", *mv.ReferenceType)
	require.NotNil(t, mv.CreatedBy)
	require.Equal(t, "mechanic-1", *mv.CreatedBy)
}

func TestAllocateValidation(t *testing.T) {
	ctx := context.Background()
	_, uc := newFixture(t)

	_, err := uc.AllocateFIFO(ctx, &dto.AllocateInput{PartID: partID, Quantity: 0})
	require.ErrorIs(t, err, stock.ErrInvalidArgument)

	_, err = uc.AllocateFIFO(ctx, &dto.AllocateInput{PartID: "", Quantity: 1})
	require.ErrorIs(t, err, stock.ErrInvalidArgument)

	_, err = uc.AllocateFIFO(ctx, &dto.AllocateInput{PartID: "no-such-part", Quantity: 1})
	require.ErrorIs(t, err, stock.ErrNotFound)
}

func TestReverseRejectsOverReturn(t *testing.T) {
	ctx := context.Background()
	repo, uc := newFixture(t)
	seedLot(repo, "lot-a", time.Now(), 10, 100)

	allocation, err := uc.AllocateFIFO(ctx, &dto.AllocateInput{PartID: partID, Quantity: 5})
	require.NoError(t, err)

	// First reversal restores the lot, a replay would inflate it past its
	// purchased quantity and must fail without touching anything.
	require.NoError(t, uc.ReverseAllocation(ctx, &dto.ReverseInput{PartID: partID, Entries: allocation.Entries}))
	before := movementCount(t, repo)

	err = uc.ReverseAllocation(ctx, &dto.ReverseInput{PartID: partID, Entries: allocation.Entries})
	require.ErrorIs(t, err, stock.ErrInvalidArgument)
	require.Equal(t, map[string]int64{"lot-a": 10}, remainingByLot(t, repo))
	require.Equal(t, before, movementCount(t, repo))
}

func TestAdjustPositiveUsesAdjustmentLot(t *testing.T) {
	ctx := context.Background()
	repo, uc := newFixture(t)
	seedLot(repo, "lot-a", time.Now(), 10, 100)

	err := uc.AdjustStock(ctx, &dto.AdjustInput{
		PartID:  partID,
		DiffQty: 3,
		Notes:   "found during stocktake",
		UserID:  "admin",
	})
	require.NoError(t, err)

	lots, err := repo.ListLots(ctx, partID)
	require.NoError(t, err)
	require.Len(t, lots, 2)

	var adjLot *model.Lot
	for i := range lots {
		if lots[i].IsAdjustment {
			adjLot = &lots[i]
		}
	}
	require.NotNil(t, adjLot, "positive adjustment must create the synthetic lot")
	require.Equal(t, int64(3), adjLot.QtyRemaining)
	require.Equal(t, int64(3), adjLot.PurchasedQty)
	require.True(t, adjLot.PurchasePrice.IsZero(), "adjustment lot carries zero cost")

	// The real purchase lot's cost basis stays untouched.
	require.Equal(t, int64(10), remainingByLot(t, repo)["lot-a"])

	// A second positive adjustment reuses the same lot.
	require.NoError(t, uc.AdjustStock(ctx, &dto.AdjustInput{PartID: partID, DiffQty: 2}))
	lots, _ = repo.ListLots(ctx, partID)
	require.Len(t, lots, 2)
}

func TestAdjustNegativeConsumesFIFO(t *testing.T) {
	ctx := context.Background()
	repo, uc := newFixture(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedLot(repo, "lot-a", base, 2, 100)
	seedLot(repo, "lot-b", base.Add(time.Hour), 5, 120)

	err := uc.AdjustStock(ctx, &dto.AdjustInput{PartID: partID, DiffQty: -4, Notes: "damaged"})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"lot-a": 0, "lot-b": 3}, remainingByLot(t, repo))

	movements, _, err := repo.ListMovements(ctx, &dto.MovementFilters{PartID: partID, MovementType: model.MovementAdjustment})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, int64(-4), movements[0].QuantityChange)
	require.Len(t, movements[0].Breakdown, 2)

	// Removing more than exists fails whole.
	err = uc.AdjustStock(ctx, &dto.AdjustInput{PartID: partID, DiffQty: -10})
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.Equal(t, map[string]int64{"lot-a": 0, "lot-b": 3}, remainingByLot(t, repo))
}

func TestAdjustZeroRejected(t *testing.T) {
	_, uc := newFixture(t)
	err := uc.AdjustStock(context.Background(), &dto.AdjustInput{PartID: partID, DiffQty: 0})
	require.ErrorIs(t, err, stock.ErrInvalidArgument)
}

func TestReceiveStock(t *testing.T) {
	ctx := context.Background()
	repo, uc := newFixture(t)

	lot, err := uc.ReceiveStock(ctx, &dto.ReceiveInput{
		PartID:        partID,
		Quantity:      12,
		PurchasePrice: decimal.RequireFromString("45.50"),
		Note:          "supplier restock",
		ReferenceType: "purchase",
		ReferenceID:   "INV-889",
		UserID:        "admin",
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), lot.PurchasedQty)
	require.Equal(t, int64(12), lot.QtyRemaining)

	movements, total, err := repo.ListMovements(ctx, &dto.MovementFilters{PartID: partID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, model.MovementReceive, movements[0].MovementType)
	require.Equal(t, int64(12), movements[0].QuantityChange)

	_, err = uc.ReceiveStock(ctx, &dto.ReceiveInput{PartID: partID, Quantity: 0, PurchasePrice: decimal.Zero})
	require.ErrorIs(t, err, stock.ErrInvalidArgument)

	_, err = uc.ReceiveStock(ctx, &dto.ReceiveInput{PartID: partID, Quantity: 1, PurchasePrice: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, stock.ErrInvalidArgument)
}

func TestGetSummary(t *testing.T) {
	ctx := context.Background()
	repo, uc := newFixture(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedLot(repo, "lot-a", base, 10, 100)
	seedLot(repo, "lot-b", base.Add(time.Hour), 5, 120)

	summary, err := uc.GetSummary(ctx, partID)
	require.NoError(t, err)
	require.Equal(t, int64(15), summary.StockQty)
	require.Equal(t, 2, summary.LotCount)
	require.True(t, summary.AverageCost.Equal(decimal.RequireFromString("106.6667")), summary.AverageCost.String())
	require.False(t, summary.LowStock)
}

// flakyRepo reports a transient conflict for the first N stock writes, then
// delegates. Models contention that resolves after a retry.
type flakyRepo struct {
	stock.Repository
	failures int
}

func (f *flakyRepo) ConsumeFIFO(ctx context.Context, partID string, qty int64, mv *model.StockMovement) (*model.Allocation, error) {
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("%w: simulated contention", stock.ErrTransientConflict)
	}
	return f.Repository.ConsumeFIFO(ctx, partID, qty, mv)
}

func TestTransientConflictRetried(t *testing.T) {
	ctx := context.Background()
	repo, _ := newFixture(t)
	seedLot(repo, "lot-a", time.Now(), 10, 100)

	flaky := &flakyRepo{Repository: repo, failures: 2}
	uc := NewStockUseCase(flaky, sequence.NewMemoryGenerator(), nil, nil, logger.NewNop())

	allocation, err := uc.AllocateFIFO(ctx, &dto.AllocateInput{PartID: partID, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, int64(3), allocation.TotalQty())

	// The two conflicted attempts rolled back; exactly one ledger entry landed.
	require.Equal(t, 1, movementCount(t, repo))
}

func TestTransientConflictSurfacedAfterRetries(t *testing.T) {
	ctx := context.Background()
	repo, _ := newFixture(t)
	seedLot(repo, "lot-a", time.Now(), 10, 100)

	flaky := &flakyRepo{Repository: repo, failures: 10}
	uc := NewStockUseCase(flaky, sequence.NewMemoryGenerator(), nil, nil, logger.NewNop())

	_, err := uc.AllocateFIFO(ctx, &dto.AllocateInput{PartID: partID, Quantity: 3})
	require.ErrorIs(t, err, stock.ErrTransientConflict)
	require.Equal(t, 0, movementCount(t, repo))
}
