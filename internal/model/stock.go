package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one discrete purchase batch of a part. Lots are created by receiving
// stock (or lazily for adjustments) and never deleted; an exhausted lot stays
// around with qty_remaining = 0 to preserve cost basis and audit history.
type Lot struct {
	BaseModel
	PartID        string          `db:"part_id" json:"part_id"`
	PurchasedQty  int64           `db:"purchased_qty" json:"purchased_qty"`
	QtyRemaining  int64           `db:"qty_remaining" json:"qty_remaining"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	IsAdjustment  bool            `db:"is_adjustment" json:"is_adjustment"`
	Note          *string         `db:"note" json:"note"`
}

// Movement types. One per stock-affecting operation.
const (
	MovementReceive    = "receive"
	MovementUse        = "use"
	MovementReturn     = "return"
	MovementAdjustment = "adjustment"
)

// AllocationEntry records how much one allocation drew from one lot.
type AllocationEntry struct {
	LotID    string          `json:"lot_id"`
	UseQty   int64           `json:"use_qty"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// Allocation is the output of one FIFO allocation: an ordered per-lot
// breakdown whose UseQty values sum to the requested quantity. The caller
// persists it with its own usage record and replays it on reversal.
type Allocation struct {
	PartID  string            `json:"part_id"`
	Entries []AllocationEntry `json:"entries"`
}

func (a *Allocation) TotalQty() int64 {
	var total int64
	for _, e := range a.Entries {
		total += e.UseQty
	}
	return total
}

// AllocationEntries is stored as a JSONB column on stock movements.
type AllocationEntries []AllocationEntry

func (e AllocationEntries) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

func (e *AllocationEntries) Scan(src interface{}) error {
	if src == nil {
		*e = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for AllocationEntries")
	}
	return json.Unmarshal(raw, e)
}

// StockMovement is one immutable, append-only ledger entry. Created in the
// same transaction as the lot mutation it describes, never edited or deleted.
type StockMovement struct {
	ID             string            `db:"id" json:"id"`
	Code           string            `db:"code" json:"code"` // human-readable, e.g. MV-000042
	PartID         string            `db:"part_id" json:"part_id"`
	MovementType   string            `db:"movement_type" json:"movement_type"`
	QuantityChange int64             `db:"quantity_change" json:"quantity_change"`
	QuantityBefore int64             `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int64             `db:"quantity_after" json:"quantity_after"`
	Breakdown      AllocationEntries `db:"breakdown" json:"breakdown"`
	ReferenceType  *string           `db:"reference_type" json:"reference_type"`
	ReferenceID    *string           `db:"reference_id" json:"reference_id"`
	Notes          string            `db:"notes" json:"notes"`
	CreatedBy      *string           `db:"created_by" json:"created_by"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}
