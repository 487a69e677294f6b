package stock

import (
	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/shopspring/decimal"
)

// BuildSummary aggregates a part's lots into the stock summary read-model.
// Average cost is weighted by remaining quantity, so the figure tracks what
// the stock on hand actually cost, not what historical lots once cost.
func BuildSummary(partID string, minStock int64, lots []model.Lot) *model.PartSummary {
	total := TotalRemaining(lots)

	weighted := decimal.Zero
	for _, lot := range lots {
		if lot.QtyRemaining > 0 {
			weighted = weighted.Add(lot.PurchasePrice.Mul(decimal.NewFromInt(lot.QtyRemaining)))
		}
	}

	avg := decimal.Zero
	if total > 0 {
		avg = weighted.DivRound(decimal.NewFromInt(total), 4)
	}

	return &model.PartSummary{
		PartID:      partID,
		StockQty:    total,
		LotCount:    len(lots),
		AverageCost: avg,
		MinStock:    minStock,
		LowStock:    minStock > 0 && total <= minStock,
	}
}
