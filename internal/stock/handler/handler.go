package handler

import (
	"errors"
	"time"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/pkg/logger"
	"github.com/bengkelos/inventory-service/internal/stock"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type StockHandler struct {
	uc     stock.UseCase
	logger logger.ZapLogger
}

func NewStockHandler(uc stock.UseCase, log logger.ZapLogger) *StockHandler {
	return &StockHandler{uc: uc, logger: log}
}

func (h *StockHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/parts/:id/lots", h.ListLots)
	router.Post("/parts/:id/lots", h.ReceiveStock)
	router.Post("/parts/:id/allocations", h.Allocate)
	router.Post("/parts/:id/reversals", h.Reverse)
	router.Post("/parts/:id/adjustments", h.Adjust)
	router.Get("/parts/:id/movements", h.ListMovements)
	router.Get("/parts/:id/summary", h.GetSummary)
}

type allocateRequest struct {
	Quantity      int64  `json:"quantity"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	Notes         string `json:"notes"`
}

func (h *StockHandler) Allocate(c *fiber.Ctx) error {
	var req allocateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	allocation, err := h.uc.AllocateFIFO(c.Context(), &dto.AllocateInput{
		PartID:        c.Params("id"),
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Notes:         req.Notes,
		UserID:        c.Get("X-User-Id"),
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(allocation)
}

type reversalEntry struct {
	LotID  string `json:"lot_id"`
	UseQty int64  `json:"use_qty"`
}

type reverseRequest struct {
	Entries       []reversalEntry `json:"entries"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	Notes         string          `json:"notes"`
}

func (h *StockHandler) Reverse(c *fiber.Ctx) error {
	var req reverseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	input := &dto.ReverseInput{
		PartID:        c.Params("id"),
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Notes:         req.Notes,
		UserID:        c.Get("X-User-Id"),
	}
	for _, e := range req.Entries {
		input.Entries = append(input.Entries, model.AllocationEntry{LotID: e.LotID, UseQty: e.UseQty})
	}

	if err := h.uc.ReverseAllocation(c.Context(), input); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type adjustRequest struct {
	DiffQty       int64  `json:"diff_qty"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	Notes         string `json:"notes"`
}

func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	err := h.uc.AdjustStock(c.Context(), &dto.AdjustInput{
		PartID:        c.Params("id"),
		DiffQty:       req.DiffQty,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Notes:         req.Notes,
		UserID:        c.Get("X-User-Id"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type receiveRequest struct {
	Quantity      int64  `json:"quantity"`
	PurchasePrice string `json:"purchase_price"`
	Note          string `json:"note"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
}

func (h *StockHandler) ReceiveStock(c *fiber.Ctx) error {
	var req receiveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	price, err := decimal.NewFromString(req.PurchasePrice)
	if err != nil {
		return badRequest(c, "invalid purchase_price")
	}

	lot, err := h.uc.ReceiveStock(c.Context(), &dto.ReceiveInput{
		PartID:        c.Params("id"),
		Quantity:      req.Quantity,
		PurchasePrice: price,
		Note:          req.Note,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		UserID:        c.Get("X-User-Id"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lot)
}

func (h *StockHandler) ListLots(c *fiber.Ctx) error {
	lots, err := h.uc.ListLots(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"items": lots})
}

func (h *StockHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.uc.GetSummary(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(summary)
}

func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	filters := &dto.MovementFilters{
		PartID:        c.Params("id"),
		MovementType:  c.Query("movement_type"),
		ReferenceType: c.Query("reference_type"),
		ReferenceID:   c.Query("reference_id"),
		Page:          c.QueryInt("page", 1),
		PageSize:      c.QueryInt("page_size", 50),
	}
	if raw := c.Query("start_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.StartDate = &t
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.EndDate = &t
		}
	}

	movements, total, err := h.uc.ListMovements(c.Context(), filters)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"items": movements, "total": total})
}

func (h *StockHandler) fail(c *fiber.Ctx, err error) error {
	status := statusFromError(err)
	if status == fiber.StatusInternalServerError {
		h.logger.Error("stock handler error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, stock.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, stock.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, stock.ErrInsufficientStock):
		return fiber.StatusConflict
	case errors.Is(err, stock.ErrTransientConflict):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
