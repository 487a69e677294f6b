package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/stock"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryRepository implements stock.Repository with in-process state. It is
// used by the usecase tests; the mutex gives the same per-part all-or-nothing
// semantics the Postgres repository gets from its transactions.
type MemoryRepository struct {
	mu        sync.Mutex
	parts     map[string]model.Part
	lots      []model.Lot
	movements []model.StockMovement
}

var _ stock.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{parts: map[string]model.Part{}}
}

// SeedPart registers a part. The memory repository has no catalog of its own.
func (r *MemoryRepository) SeedPart(part model.Part) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parts[part.ID] = part
}

// SeedLot inserts a lot without recording a movement, for test fixtures.
func (r *MemoryRepository) SeedLot(lot model.Lot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots = append(r.lots, lot)
}

func (r *MemoryRepository) partLots(partID string) []model.Lot {
	lots := []model.Lot{}
	for _, lot := range r.lots {
		if lot.PartID == partID {
			lots = append(lots, lot)
		}
	}
	stock.SortLotsFIFO(lots)
	return lots
}

func (r *MemoryRepository) applyDelta(lotID string, delta int64) {
	for i := range r.lots {
		if r.lots[i].ID == lotID {
			r.lots[i].QtyRemaining += delta
			r.lots[i].UpdatedAt = time.Now()
			return
		}
	}
}

func (r *MemoryRepository) requirePart(partID string) error {
	if _, ok := r.parts[partID]; !ok {
		return fmt.Errorf("%w: part %s", stock.ErrNotFound, partID)
	}
	return nil
}

func (r *MemoryRepository) ListLots(ctx context.Context, partID string) ([]model.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePart(partID); err != nil {
		return nil, err
	}
	return r.partLots(partID), nil
}

func (r *MemoryRepository) ConsumeFIFO(ctx context.Context, partID string, qty int64, mv *model.StockMovement) (*model.Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePart(partID); err != nil {
		return nil, err
	}

	lots := r.partLots(partID)
	entries, err := stock.PlanFIFO(lots, qty)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		r.applyDelta(e.LotID, -e.UseQty)
	}

	before := stock.TotalRemaining(lots)
	mv.PartID = partID
	mv.QuantityChange = -qty
	mv.QuantityBefore = before
	mv.QuantityAfter = before - qty
	mv.Breakdown = entries
	r.movements = append(r.movements, *mv)

	return &model.Allocation{PartID: partID, Entries: entries}, nil
}

func (r *MemoryRepository) ReturnAllocation(ctx context.Context, partID string, entries []model.AllocationEntry, mv *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePart(partID); err != nil {
		return err
	}

	lots := r.partLots(partID)
	if err := stock.ValidateReversal(lots, entries); err != nil {
		return err
	}

	var total int64
	for _, e := range entries {
		r.applyDelta(e.LotID, e.UseQty)
		total += e.UseQty
	}

	before := stock.TotalRemaining(lots)
	mv.PartID = partID
	mv.QuantityChange = total
	mv.QuantityBefore = before
	mv.QuantityAfter = before + total
	mv.Breakdown = entries
	r.movements = append(r.movements, *mv)
	return nil
}

func (r *MemoryRepository) Adjust(ctx context.Context, partID string, diffQty int64, mv *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePart(partID); err != nil {
		return err
	}

	lots := r.partLots(partID)
	before := stock.TotalRemaining(lots)

	if diffQty > 0 {
		lotID := r.adjustmentLotID(partID)
		for i := range r.lots {
			if r.lots[i].ID == lotID {
				r.lots[i].PurchasedQty += diffQty
				r.lots[i].QtyRemaining += diffQty
				r.lots[i].UpdatedAt = time.Now()
			}
		}
		mv.Breakdown = model.AllocationEntries{{LotID: lotID, UseQty: diffQty, UnitCost: decimal.Zero}}
	} else {
		entries, err := stock.PlanFIFO(lots, -diffQty)
		if err != nil {
			return err
		}
		for _, e := range entries {
			r.applyDelta(e.LotID, -e.UseQty)
		}
		mv.Breakdown = entries
	}

	mv.PartID = partID
	mv.QuantityChange = diffQty
	mv.QuantityBefore = before
	mv.QuantityAfter = before + diffQty
	r.movements = append(r.movements, *mv)
	return nil
}

func (r *MemoryRepository) adjustmentLotID(partID string) string {
	for _, lot := range r.lots {
		if lot.PartID == partID && lot.IsAdjustment {
			return lot.ID
		}
	}
	now := time.Now()
	note := "synthetic adjustment lot"
	lot := model.Lot{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		PartID:        partID,
		PurchasePrice: decimal.Zero,
		IsAdjustment:  true,
		Note:          &note,
	}
	r.lots = append(r.lots, lot)
	return lot.ID
}

func (r *MemoryRepository) InsertLot(ctx context.Context, lot *model.Lot, mv *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePart(lot.PartID); err != nil {
		return err
	}

	before := stock.TotalRemaining(r.partLots(lot.PartID))
	r.lots = append(r.lots, *lot)

	mv.PartID = lot.PartID
	mv.QuantityChange = lot.PurchasedQty
	mv.QuantityBefore = before
	mv.QuantityAfter = before + lot.PurchasedQty
	mv.Breakdown = model.AllocationEntries{{LotID: lot.ID, UseQty: lot.PurchasedQty, UnitCost: lot.PurchasePrice}}
	r.movements = append(r.movements, *mv)
	return nil
}

func (r *MemoryRepository) Summary(ctx context.Context, partID string) (*model.PartSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePart(partID); err != nil {
		return nil, err
	}
	part := r.parts[partID]
	return stock.BuildSummary(partID, part.MinStock, r.partLots(partID)), nil
}

func (r *MemoryRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []model.StockMovement{}
	for _, m := range r.movements {
		if f.PartID != "" && m.PartID != f.PartID {
			continue
		}
		if f.MovementType != "" && m.MovementType != f.MovementType {
			continue
		}
		if f.ReferenceType != "" && (m.ReferenceType == nil || *m.ReferenceType != f.ReferenceType) {
			continue
		}
		if f.ReferenceID != "" && (m.ReferenceID == nil || *m.ReferenceID != f.ReferenceID) {
			continue
		}
		matched = append(matched, m)
	}

	count := len(matched)
	if f.PageSize > 0 {
		start := (f.Page - 1) * f.PageSize
		if start < 0 {
			start = 0
		}
		if start > count {
			start = count
		}
		end := start + f.PageSize
		if end > count {
			end = count
		}
		matched = matched[start:end]
	}
	return matched, count, nil
}
