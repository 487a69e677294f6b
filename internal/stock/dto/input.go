package dto

import (
	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/shopspring/decimal"
)

type AllocateInput struct {
	PartID        string
	Quantity      int64
	ReferenceType string // e.g. 'repair'
	ReferenceID   string // e.g. repair job code
	Notes         string
	UserID        string
}

type ReverseInput struct {
	PartID        string
	Entries       []model.AllocationEntry
	ReferenceType string
	ReferenceID   string
	Notes         string
	UserID        string
}

type AdjustInput struct {
	PartID        string
	DiffQty       int64 // positive adds stock, negative removes
	ReferenceType string
	ReferenceID   string
	Notes         string
	UserID        string
}

type ReceiveInput struct {
	PartID        string
	Quantity      int64
	PurchasePrice decimal.Decimal
	Note          string
	ReferenceType string // e.g. 'purchase'
	ReferenceID   string // e.g. supplier invoice number
	UserID        string
}
