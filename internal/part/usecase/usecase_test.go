package usecase

import (
	"context"
	"testing"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/part"
	"github.com/bengkelos/inventory-service/internal/part/dto"
	"github.com/bengkelos/inventory-service/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	created *model.Part
	updated *model.Part
	byID    map[string]*model.Part
}

func (s *stubRepo) Create(ctx context.Context, p *model.Part) error {
	s.created = p
	return nil
}

func (s *stubRepo) Update(ctx context.Context, p *model.Part) error {
	s.updated = p
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (*model.Part, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, part.ErrNotFound
}

func (s *stubRepo) FindAll(ctx context.Context, f *dto.PartFilters) ([]model.PartWithStock, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) FindLowStock(ctx context.Context, page, pageSize int) ([]model.PartWithStock, int, error) {
	return nil, 0, nil
}

func TestCreatePart(t *testing.T) {
	repo := &stubRepo{}
	uc := NewPartUseCase(repo, logger.NewNop())

	p, err := uc.CreatePart(context.Background(), &dto.CreatePartInput{
		Name:      "  brake pad  ",
		Brand:     "Brembo",
		SellPrice: decimal.RequireFromString("150.00"),
		MinStock:  5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, "brake pad", p.Name)
	require.NotNil(t, p.Brand)
	require.Equal(t, "Brembo", *p.Brand)
	require.Nil(t, p.Grade)
	require.True(t, p.IsActive)
	require.Equal(t, repo.created, p)
}

func TestCreatePartValidation(t *testing.T) {
	uc := NewPartUseCase(&stubRepo{}, logger.NewNop())

	_, err := uc.CreatePart(context.Background(), &dto.CreatePartInput{Name: "   "})
	require.ErrorIs(t, err, part.ErrInvalidInput)

	_, err = uc.CreatePart(context.Background(), &dto.CreatePartInput{
		Name:      "oil filter",
		SellPrice: decimal.NewFromInt(-1),
	})
	require.ErrorIs(t, err, part.ErrInvalidInput)

	_, err = uc.CreatePart(context.Background(), &dto.CreatePartInput{
		Name:     "oil filter",
		MinStock: -2,
	})
	require.ErrorIs(t, err, part.ErrInvalidInput)
}

func TestUpdatePart(t *testing.T) {
	existing := &model.Part{
		BaseModel: model.BaseModel{ID: "p1"},
		Name:      "old name",
		IsActive:  true,
	}
	repo := &stubRepo{byID: map[string]*model.Part{"p1": existing}}
	uc := NewPartUseCase(repo, logger.NewNop())

	p, err := uc.UpdatePart(context.Background(), &dto.UpdatePartInput{
		ID:        "p1",
		Name:      "new name",
		Grade:     "OEM",
		SellPrice: decimal.NewFromInt(99),
		MinStock:  2,
		IsActive:  false,
	})
	require.NoError(t, err)
	require.Equal(t, "new name", p.Name)
	require.NotNil(t, p.Grade)
	require.False(t, p.IsActive)
	require.Equal(t, repo.updated, p)
}

func TestUpdatePartNotFound(t *testing.T) {
	uc := NewPartUseCase(&stubRepo{byID: map[string]*model.Part{}}, logger.NewNop())

	_, err := uc.UpdatePart(context.Background(), &dto.UpdatePartInput{
		ID:        "missing",
		Name:      "anything",
		SellPrice: decimal.Zero,
	})
	require.ErrorIs(t, err, part.ErrNotFound)
}
