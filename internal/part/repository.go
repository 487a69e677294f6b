package part

import (
	"context"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/part/dto"
)

type Repository interface {
	Create(ctx context.Context, p *model.Part) error
	Update(ctx context.Context, p *model.Part) error
	GetByID(ctx context.Context, id string) (*model.Part, error)
	FindAll(ctx context.Context, filters *dto.PartFilters) ([]model.PartWithStock, int, error)

	// FindLowStock lists active parts whose aggregate remaining quantity is at
	// or below their minimum-stock threshold.
	FindLowStock(ctx context.Context, page, pageSize int) ([]model.PartWithStock, int, error)
}
