package stock

import (
	"context"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
)

// Repository is the lot store plus the ledger recorder. Every stock-affecting
// method composes the lot mutation and the movement insert into one
// transaction: either both land or neither does. The caller (usecase) fills
// the movement's identity, kind, reference and actor fields; the repository
// fills QuantityBefore/After, QuantityChange and Breakdown from what the
// transaction actually did.
type Repository interface {
	// ListLots returns all lots of a part, exhausted ones included, ordered
	// oldest-first (created_at, id). Returns ErrNotFound for an unknown part;
	// a known part with no lots yields an empty slice.
	ListLots(ctx context.Context, partID string) ([]model.Lot, error)

	// ConsumeFIFO atomically checks availability, decrements lots oldest-first
	// and appends the movement. On ErrInsufficientStock no state changes.
	ConsumeFIFO(ctx context.Context, partID string, qty int64, mv *model.StockMovement) (*model.Allocation, error)

	// ReturnAllocation atomically increments exactly the lots in entries and
	// appends the movement. Rejects with ErrInvalidArgument if any increment
	// would exceed a lot's purchased quantity; nothing is applied then.
	ReturnAllocation(ctx context.Context, partID string, entries []model.AllocationEntry, mv *model.StockMovement) error

	// Adjust applies an allocation-less correction: a positive diff goes to
	// the part's synthetic adjustment lot (created on first use), a negative
	// diff consumes FIFO across lots. One movement either way.
	Adjust(ctx context.Context, partID string, diffQty int64, mv *model.StockMovement) error

	// InsertLot records a newly received purchase lot together with its
	// receive movement.
	InsertLot(ctx context.Context, lot *model.Lot, mv *model.StockMovement) error

	// Summary aggregates remaining quantity, lot count and weighted average
	// cost for a part.
	Summary(ctx context.Context, partID string) (*model.PartSummary, error)

	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
}
