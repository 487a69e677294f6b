package part

import (
	"context"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/part/dto"
)

type UseCase interface {
	CreatePart(ctx context.Context, input *dto.CreatePartInput) (*model.Part, error)
	UpdatePart(ctx context.Context, input *dto.UpdatePartInput) (*model.Part, error)
	GetPart(ctx context.Context, id string) (*model.Part, error)
	ListParts(ctx context.Context, filters *dto.PartFilters) ([]model.PartWithStock, int, error)
	ListLowStock(ctx context.Context, page, pageSize int) ([]model.PartWithStock, int, error)
}
