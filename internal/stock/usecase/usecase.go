package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/pkg/broker"
	"github.com/bengkelos/inventory-service/internal/pkg/cache"
	"github.com/bengkelos/inventory-service/internal/pkg/logger"
	"github.com/bengkelos/inventory-service/internal/sequence"
	"github.com/bengkelos/inventory-service/internal/stock"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	movementSequence = "stock_movement"
	summaryCacheTTL  = 30 * time.Second

	// conflictRetries bounds transparent retries after ErrTransientConflict.
	conflictRetries = 3
)

type stockUseCase struct {
	repo     stock.Repository
	seq      sequence.Generator
	cache    *cache.RedisClient    // optional
	producer *broker.KafkaProducer // optional
	logger   logger.ZapLogger
}

func NewStockUseCase(repo stock.Repository, seq sequence.Generator, cache *cache.RedisClient, producer *broker.KafkaProducer, log logger.ZapLogger) stock.UseCase {
	return &stockUseCase{
		repo:     repo,
		seq:      seq,
		cache:    cache,
		producer: producer,
		logger:   log,
	}
}

func (uc *stockUseCase) AllocateFIFO(ctx context.Context, input *dto.AllocateInput) (*model.Allocation, error) {
	if input.PartID == "" {
		return nil, fmt.Errorf("%w: part id is required", stock.ErrInvalidArgument)
	}
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", stock.ErrInvalidArgument, input.Quantity)
	}

	unlock, err := uc.lockPart(ctx, input.PartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var allocation *model.Allocation
	var mv *model.StockMovement
	err = uc.withConflictRetry(ctx, func() error {
		m, err := uc.newMovement(ctx, model.MovementUse, input.ReferenceType, input.ReferenceID, input.Notes, input.UserID)
		if err != nil {
			return err
		}
		a, err := uc.repo.ConsumeFIFO(ctx, input.PartID, input.Quantity, m)
		if err != nil {
			return err
		}
		allocation, mv = a, m
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.afterMovement(input.PartID, mv)
	return allocation, nil
}

func (uc *stockUseCase) ReverseAllocation(ctx context.Context, input *dto.ReverseInput) error {
	if input.PartID == "" {
		return fmt.Errorf("%w: part id is required", stock.ErrInvalidArgument)
	}
	if len(input.Entries) == 0 {
		return fmt.Errorf("%w: allocation has no entries", stock.ErrInvalidArgument)
	}

	unlock, err := uc.lockPart(ctx, input.PartID)
	if err != nil {
		return err
	}
	defer unlock()

	var mv *model.StockMovement
	err = uc.withConflictRetry(ctx, func() error {
		m, err := uc.newMovement(ctx, model.MovementReturn, input.ReferenceType, input.ReferenceID, input.Notes, input.UserID)
		if err != nil {
			return err
		}
		if err := uc.repo.ReturnAllocation(ctx, input.PartID, input.Entries, m); err != nil {
			return err
		}
		mv = m
		return nil
	})
	if err != nil {
		return err
	}

	uc.afterMovement(input.PartID, mv)
	return nil
}

func (uc *stockUseCase) AdjustStock(ctx context.Context, input *dto.AdjustInput) error {
	if input.PartID == "" {
		return fmt.Errorf("%w: part id is required", stock.ErrInvalidArgument)
	}
	if input.DiffQty == 0 {
		return fmt.Errorf("%w: adjustment quantity must be non-zero", stock.ErrInvalidArgument)
	}

	unlock, err := uc.lockPart(ctx, input.PartID)
	if err != nil {
		return err
	}
	defer unlock()

	var mv *model.StockMovement
	err = uc.withConflictRetry(ctx, func() error {
		m, err := uc.newMovement(ctx, model.MovementAdjustment, input.ReferenceType, input.ReferenceID, input.Notes, input.UserID)
		if err != nil {
			return err
		}
		if err := uc.repo.Adjust(ctx, input.PartID, input.DiffQty, m); err != nil {
			return err
		}
		mv = m
		return nil
	})
	if err != nil {
		return err
	}

	uc.afterMovement(input.PartID, mv)
	return nil
}

func (uc *stockUseCase) ReceiveStock(ctx context.Context, input *dto.ReceiveInput) (*model.Lot, error) {
	if input.PartID == "" {
		return nil, fmt.Errorf("%w: part id is required", stock.ErrInvalidArgument)
	}
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", stock.ErrInvalidArgument, input.Quantity)
	}
	if input.PurchasePrice.IsNegative() {
		return nil, fmt.Errorf("%w: purchase price cannot be negative", stock.ErrInvalidArgument)
	}

	unlock, err := uc.lockPart(ctx, input.PartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := time.Now()
	var note *string
	if input.Note != "" {
		n := input.Note
		note = &n
	}
	lot := &model.Lot{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		PartID:        input.PartID,
		PurchasedQty:  input.Quantity,
		QtyRemaining:  input.Quantity,
		PurchasePrice: input.PurchasePrice,
		Note:          note,
	}

	var mv *model.StockMovement
	err = uc.withConflictRetry(ctx, func() error {
		m, err := uc.newMovement(ctx, model.MovementReceive, input.ReferenceType, input.ReferenceID, input.Note, input.UserID)
		if err != nil {
			return err
		}
		if err := uc.repo.InsertLot(ctx, lot, m); err != nil {
			return err
		}
		mv = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.afterMovement(input.PartID, mv)
	return lot, nil
}

func (uc *stockUseCase) ListLots(ctx context.Context, partID string) ([]model.Lot, error) {
	return uc.repo.ListLots(ctx, partID)
}

func (uc *stockUseCase) GetSummary(ctx context.Context, partID string) (*model.PartSummary, error) {
	cacheKey := summaryCacheKey(partID)
	if uc.cache != nil {
		var cached model.PartSummary
		hit, err := uc.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			uc.logger.Warn("failed to read summary cache", zap.Error(err))
		}
		if hit {
			return &cached, nil
		}
	}

	summary, err := uc.repo.Summary(ctx, partID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, cacheKey, summary, summaryCacheTTL); err != nil {
			uc.logger.Warn("failed to write summary cache", zap.Error(err))
		}
	}
	return summary, nil
}

func (uc *stockUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

// newMovement builds the ledger entry shell: identity, kind, reference and
// actor. The repository fills the quantity fields and breakdown inside the
// transaction.
func (uc *stockUseCase) newMovement(ctx context.Context, movementType, refType, refID, notes, userID string) (*model.StockMovement, error) {
	n, err := uc.seq.Next(ctx, movementSequence)
	if err != nil {
		return nil, fmt.Errorf("failed to generate movement code: %w", err)
	}

	var rt, ri, createdBy *string
	if refType != "" {
		rt = &refType
	}
	if refID != "" {
		ri = &refID
	}
	if userID != "" && userID != "unknown" {
		createdBy = &userID
	}

	return &model.StockMovement{
		ID:            uuid.New().String(),
		Code:          fmt.Sprintf("MV-%06d", n),
		MovementType:  movementType,
		ReferenceType: rt,
		ReferenceID:   ri,
		Notes:         notes,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now(),
	}, nil
}

// lockPart takes a best-effort redis lock so hot parts don't hammer the
// database with conflicting transactions. The row lock inside the repository
// remains the correctness guarantee; running without redis is fine.
func (uc *stockUseCase) lockPart(ctx context.Context, partID string) (func(), error) {
	if uc.cache == nil {
		return func() {}, nil
	}

	lockKey := "lock:stock:" + partID
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < 3; i++ {
		ok, err := uc.cache.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
		if err != nil {
			uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: part %s is locked by another operation", stock.ErrTransientConflict, partID)
	}

	return func() {
		if err := uc.cache.ReleaseLock(ctx, lockKey, lockValue); err != nil {
			uc.logger.Warn("failed to release lock", zap.Error(err))
		}
	}, nil
}

func (uc *stockUseCase) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, stock.ErrTransientConflict) {
			return err
		}
		uc.logger.Warn("retrying after transient conflict", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return err
}

type stockMovementEvent struct {
	EventType      string    `json:"event_type"`
	MovementID     string    `json:"movement_id"`
	Code           string    `json:"code"`
	PartID         string    `json:"part_id"`
	MovementType   string    `json:"movement_type"`
	QuantityChange int64     `json:"quantity_change"`
	QuantityAfter  int64     `json:"quantity_after"`
	ReferenceType  *string   `json:"reference_type"`
	ReferenceID    *string   `json:"reference_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// afterMovement invalidates the summary cache and publishes the movement
// event. Both are best-effort: the ledger entry is already committed.
func (uc *stockUseCase) afterMovement(partID string, mv *model.StockMovement) {
	go uc.invalidateSummaryCache(context.Background(), partID)

	if uc.producer == nil {
		return
	}
	event := stockMovementEvent{
		EventType:      "StockMovementRecorded",
		MovementID:     mv.ID,
		Code:           mv.Code,
		PartID:         mv.PartID,
		MovementType:   mv.MovementType,
		QuantityChange: mv.QuantityChange,
		QuantityAfter:  mv.QuantityAfter,
		ReferenceType:  mv.ReferenceType,
		ReferenceID:    mv.ReferenceID,
		Timestamp:      mv.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		uc.logger.Error("failed to marshal movement event", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.producer.Publish(ctx, []byte(partID), payload); err != nil {
		uc.logger.Error("failed to publish movement event",
			zap.String("movement_id", mv.ID),
			zap.String("part_id", mv.PartID),
			zap.Error(err),
		)
	}
}

func (uc *stockUseCase) invalidateSummaryCache(ctx context.Context, partID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, summaryCacheKey(partID)); err != nil {
		uc.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}
}

func summaryCacheKey(partID string) string {
	return "stock:summary:" + partID
}
