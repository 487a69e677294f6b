package stock

import (
	"context"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
)

type UseCase interface {
	// AllocateFIFO consumes input.Quantity units of a part oldest-lot-first
	// and returns the per-lot breakdown. The caller must persist the returned
	// allocation with its usage record and replay it on reversal.
	AllocateFIFO(ctx context.Context, input *dto.AllocateInput) (*model.Allocation, error)

	// ReverseAllocation returns stock to the exact lots a prior allocation
	// drew from.
	ReverseAllocation(ctx context.Context, input *dto.ReverseInput) error

	// AdjustStock is the fallback for corrections with no allocation on
	// record.
	AdjustStock(ctx context.Context, input *dto.AdjustInput) error

	// ReceiveStock creates a new purchase lot.
	ReceiveStock(ctx context.Context, input *dto.ReceiveInput) (*model.Lot, error)

	ListLots(ctx context.Context, partID string) ([]model.Lot, error)
	GetSummary(ctx context.Context, partID string) (*model.PartSummary, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
}
