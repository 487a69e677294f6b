package dto

import "github.com/shopspring/decimal"

type CreatePartInput struct {
	Name      string
	Brand     string
	Grade     string
	SellPrice decimal.Decimal
	MinStock  int64
}

type UpdatePartInput struct {
	ID        string
	Name      string
	Brand     string
	Grade     string
	SellPrice decimal.Decimal
	MinStock  int64
	IsActive  bool
}
