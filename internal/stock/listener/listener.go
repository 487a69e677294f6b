package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/pkg/broker"
	"github.com/bengkelos/inventory-service/internal/pkg/logger"
	"github.com/bengkelos/inventory-service/internal/stock"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
	"go.uber.org/zap"
)

// RepairListener consumes repair-job events and plays reversals back into the
// stock engine. The repair service stores the allocation breakdown it received
// when a part was added to a job and embeds it in the removal/cancel events;
// usages recorded before lot-tracking existed have no breakdown and fall back
// to a plain adjustment.
type RepairListener struct {
	consumer *broker.KafkaConsumer
	uc       stock.UseCase
	logger   logger.ZapLogger
}

func NewRepairListener(consumer *broker.KafkaConsumer, uc stock.UseCase, logger logger.ZapLogger) *RepairListener {
	return &RepairListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *RepairListener) Start(ctx context.Context) {
	l.logger.Info("Starting Repair Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Repair Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type repairEvent struct {
	EventID   string        `json:"event_id"`
	EventType string        `json:"event_type"`
	Payload   repairPayload `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
}

type repairPayload struct {
	RepairID   string        `json:"repair_id"`
	RepairCode string        `json:"repair_code"`
	Usages     []usageRecord `json:"usages"`
}

type usageRecord struct {
	UsageID    string                  `json:"usage_id"`
	PartID     string                  `json:"part_id"`
	Quantity   int64                   `json:"quantity"`
	Allocation []model.AllocationEntry `json:"allocation"` // empty for pre-lot-tracking data
}

func (l *RepairListener) processMessage(ctx context.Context, value []byte) {
	var event repairEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	switch event.EventType {
	case "RepairCanceled", "RepairPartRemoved":
	default:
		return
	}

	l.logger.Info("Processing repair event",
		zap.String("event_type", event.EventType),
		zap.String("repair_id", event.Payload.RepairID),
	)

	for _, usage := range event.Payload.Usages {
		l.restoreUsage(ctx, &event, usage)
	}
}

func (l *RepairListener) restoreUsage(ctx context.Context, event *repairEvent, usage usageRecord) {
	refCode := event.Payload.RepairCode
	if refCode == "" {
		refCode = event.Payload.RepairID
	}

	var err error
	if len(usage.Allocation) > 0 {
		err = l.uc.ReverseAllocation(ctx, &dto.ReverseInput{
			PartID:        usage.PartID,
			Entries:       usage.Allocation,
			ReferenceType: "repair",
			ReferenceID:   refCode,
			Notes:         "restored by " + event.EventType,
			UserID:        "system",
		})
	} else {
		// Legacy usage with no recorded breakdown.
		err = l.uc.AdjustStock(ctx, &dto.AdjustInput{
			PartID:        usage.PartID,
			DiffQty:       usage.Quantity,
			ReferenceType: "repair",
			ReferenceID:   refCode,
			Notes:         "restored by " + event.EventType + " (no allocation on record)",
			UserID:        "system",
		})
	}
	if err != nil {
		l.logger.Error("Failed to restore stock for repair usage",
			zap.String("repair_id", event.Payload.RepairID),
			zap.String("usage_id", usage.UsageID),
			zap.String("part_id", usage.PartID),
			zap.Error(err),
		)
	}
}
