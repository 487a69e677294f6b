package listener

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/pkg/logger"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingUseCase struct {
	reversed []*dto.ReverseInput
	adjusted []*dto.AdjustInput
}

func (r *recordingUseCase) AllocateFIFO(ctx context.Context, input *dto.AllocateInput) (*model.Allocation, error) {
	return nil, nil
}

func (r *recordingUseCase) ReverseAllocation(ctx context.Context, input *dto.ReverseInput) error {
	r.reversed = append(r.reversed, input)
	return nil
}

func (r *recordingUseCase) AdjustStock(ctx context.Context, input *dto.AdjustInput) error {
	r.adjusted = append(r.adjusted, input)
	return nil
}

func (r *recordingUseCase) ReceiveStock(ctx context.Context, input *dto.ReceiveInput) (*model.Lot, error) {
	return nil, nil
}

func (r *recordingUseCase) ListLots(ctx context.Context, partID string) ([]model.Lot, error) {
	return nil, nil
}

func (r *recordingUseCase) GetSummary(ctx context.Context, partID string) (*model.PartSummary, error) {
	return nil, nil
}

func (r *recordingUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return nil, 0, nil
}

func TestProcessRepairCanceled(t *testing.T) {
	uc := &recordingUseCase{}
	l := NewRepairListener(nil, uc, logger.NewNop())

	event := repairEvent{
		EventID:   "ev-1",
		EventType: "RepairCanceled",
		Payload: repairPayload{
			RepairID:   "rj-1",
			RepairCode: "RJ-0042",
			Usages: []usageRecord{
				{
					UsageID:  "u1",
					PartID:   "part-1",
					Quantity: 5,
					Allocation: []model.AllocationEntry{
						{LotID: "lot-a", UseQty: 3, UnitCost: decimal.NewFromInt(100)},
						{LotID: "lot-b", UseQty: 2, UnitCost: decimal.NewFromInt(120)},
					},
				},
				{
					// Legacy usage without a recorded breakdown.
					UsageID:  "u2",
					PartID:   "part-2",
					Quantity: 4,
				},
			},
		},
	}
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	l.processMessage(context.Background(), raw)

	require.Len(t, uc.reversed, 1)
	require.Equal(t, "part-1", uc.reversed[0].PartID)
	require.Len(t, uc.reversed[0].Entries, 2)
	require.Equal(t, "RJ-0042", uc.reversed[0].ReferenceID)

	require.Len(t, uc.adjusted, 1)
	require.Equal(t, "part-2", uc.adjusted[0].PartID)
	require.Equal(t, int64(4), uc.adjusted[0].DiffQty)
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	uc := &recordingUseCase{}
	l := NewRepairListener(nil, uc, logger.NewNop())

	raw, err := json.Marshal(repairEvent{EventType: "RepairCompleted", Payload: repairPayload{
		Usages: []usageRecord{{PartID: "part-1", Quantity: 1}},
	}})
	require.NoError(t, err)

	l.processMessage(context.Background(), raw)

	require.Empty(t, uc.reversed)
	require.Empty(t, uc.adjusted)
}

func TestProcessMalformedPayload(t *testing.T) {
	uc := &recordingUseCase{}
	l := NewRepairListener(nil, uc, logger.NewNop())

	l.processMessage(context.Background(), []byte("{not json"))

	require.Empty(t, uc.reversed)
	require.Empty(t, uc.adjusted)
}
