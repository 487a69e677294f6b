package model

import "github.com/shopspring/decimal"

type Part struct {
	BaseModel
	Name      string          `db:"name" json:"name"`
	Brand     *string         `db:"brand" json:"brand"`
	Grade     *string         `db:"grade" json:"grade"` // e.g. "original", "OEM", "aftermarket"
	SellPrice decimal.Decimal `db:"sell_price" json:"sell_price"`
	MinStock  int64           `db:"min_stock" json:"min_stock"`
	IsActive  bool            `db:"is_active" json:"is_active"`
}

// PartSummary is the read-model returned alongside a Part: aggregate remaining
// quantity across its lots and the remaining-quantity-weighted average cost.
type PartSummary struct {
	PartID      string          `db:"part_id" json:"part_id"`
	StockQty    int64           `db:"stock_qty" json:"stock_qty"`
	LotCount    int             `db:"lot_count" json:"lot_count"`
	AverageCost decimal.Decimal `db:"average_cost" json:"average_cost"`
	LowStock    bool            `db:"low_stock" json:"low_stock"`
	MinStock    int64           `db:"min_stock" json:"min_stock"`
}

// PartWithStock is a Part joined with its aggregate remaining quantity,
// used by list and low-stock queries.
type PartWithStock struct {
	Part
	StockQty int64 `db:"stock_qty" json:"stock_qty"`
}
