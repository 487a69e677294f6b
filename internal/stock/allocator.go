package stock

import (
	"fmt"
	"sort"

	"github.com/bengkelos/inventory-service/internal/model"
)

// SortLotsFIFO orders lots oldest-first by creation time, ties broken by lot
// id so the walk is deterministic. Lots fetched from Postgres arrive already
// ordered; the in-memory repository relies on this.
func SortLotsFIFO(lots []model.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].ID < lots[j].ID
		}
		return lots[i].CreatedAt.Before(lots[j].CreatedAt)
	})
}

// PlanFIFO computes the per-lot breakdown for consuming qty units, walking
// lots oldest-first and taking min(remaining request, lot remaining) from
// each. Lots must already be in FIFO order. The plan does not mutate lots;
// applying the decrements is the repository's job, atomically with the
// availability check this plan performs.
//
// Returns ErrInsufficientStock when the lots cannot cover qty, and
// ErrInvalidArgument for a non-positive qty.
func PlanFIFO(lots []model.Lot, qty int64) ([]model.AllocationEntry, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, qty)
	}

	remaining := qty
	entries := []model.AllocationEntry{}
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		if lot.QtyRemaining <= 0 {
			continue
		}
		take := remaining
		if take > lot.QtyRemaining {
			take = lot.QtyRemaining
		}
		entries = append(entries, model.AllocationEntry{
			LotID:    lot.ID,
			UseQty:   take,
			UnitCost: lot.PurchasePrice,
		})
		remaining -= take
	}

	if remaining > 0 {
		return nil, fmt.Errorf("%w: requested %d, short by %d", ErrInsufficientStock, qty, remaining)
	}
	return entries, nil
}

// ValidateReversal checks a recorded breakdown against the current lots before
// any increment is applied: every entry must reference a known lot of the part
// with a positive quantity, and no increment may push a lot past its purchased
// quantity (over-return protection).
func ValidateReversal(lots []model.Lot, entries []model.AllocationEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: empty allocation", ErrInvalidArgument)
	}

	byID := make(map[string]model.Lot, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}

	pending := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.UseQty <= 0 {
			return fmt.Errorf("%w: allocation entry for lot %s has non-positive quantity %d", ErrInvalidArgument, e.LotID, e.UseQty)
		}
		lot, ok := byID[e.LotID]
		if !ok {
			return fmt.Errorf("%w: lot %s", ErrNotFound, e.LotID)
		}
		pending[e.LotID] += e.UseQty
		if lot.QtyRemaining+pending[e.LotID] > lot.PurchasedQty {
			return fmt.Errorf("%w: returning %d to lot %s would exceed its purchased quantity %d",
				ErrInvalidArgument, pending[e.LotID], e.LotID, lot.PurchasedQty)
		}
	}
	return nil
}

// TotalRemaining sums qty_remaining across lots.
func TotalRemaining(lots []model.Lot) int64 {
	var total int64
	for _, lot := range lots {
		total += lot.QtyRemaining
	}
	return total
}
