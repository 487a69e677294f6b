package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/part"
	"github.com/bengkelos/inventory-service/internal/part/dto"
	"github.com/bengkelos/inventory-service/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type partUseCase struct {
	repo   part.Repository
	logger logger.ZapLogger
}

func NewPartUseCase(repo part.Repository, log logger.ZapLogger) part.UseCase {
	return &partUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *partUseCase) CreatePart(ctx context.Context, input *dto.CreatePartInput) (*model.Part, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", part.ErrInvalidInput)
	}
	if input.SellPrice.IsNegative() {
		return nil, fmt.Errorf("%w: sell price cannot be negative", part.ErrInvalidInput)
	}
	if input.MinStock < 0 {
		return nil, fmt.Errorf("%w: min stock cannot be negative", part.ErrInvalidInput)
	}

	now := time.Now()
	p := &model.Part{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:      strings.TrimSpace(input.Name),
		Brand:     optional(input.Brand),
		Grade:     optional(input.Grade),
		SellPrice: input.SellPrice,
		MinStock:  input.MinStock,
		IsActive:  true,
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.logger.Info("part created", zap.String("part_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (uc *partUseCase) UpdatePart(ctx context.Context, input *dto.UpdatePartInput) (*model.Part, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", part.ErrInvalidInput)
	}
	if input.SellPrice.IsNegative() {
		return nil, fmt.Errorf("%w: sell price cannot be negative", part.ErrInvalidInput)
	}

	p, err := uc.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(input.Name)
	p.Brand = optional(input.Brand)
	p.Grade = optional(input.Grade)
	p.SellPrice = input.SellPrice
	p.MinStock = input.MinStock
	p.IsActive = input.IsActive
	p.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *partUseCase) GetPart(ctx context.Context, id string) (*model.Part, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *partUseCase) ListParts(ctx context.Context, filters *dto.PartFilters) ([]model.PartWithStock, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *partUseCase) ListLowStock(ctx context.Context, page, pageSize int) ([]model.PartWithStock, int, error) {
	return uc.repo.FindLowStock(ctx, page, pageSize)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
