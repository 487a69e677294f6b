package handler

import (
	"errors"

	"github.com/bengkelos/inventory-service/internal/part"
	"github.com/bengkelos/inventory-service/internal/part/dto"
	"github.com/bengkelos/inventory-service/internal/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PartHandler struct {
	uc     part.UseCase
	logger logger.ZapLogger
}

func NewPartHandler(uc part.UseCase, log logger.ZapLogger) *PartHandler {
	return &PartHandler{uc: uc, logger: log}
}

func (h *PartHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/parts", h.Create)
	router.Get("/parts", h.List)
	router.Get("/parts/low-stock", h.ListLowStock)
	router.Get("/parts/:id", h.Get)
	router.Put("/parts/:id", h.Update)
}

type partRequest struct {
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Grade     string `json:"grade"`
	SellPrice string `json:"sell_price"`
	MinStock  int64  `json:"min_stock"`
	IsActive  *bool  `json:"is_active"`
}

func (h *PartHandler) Create(c *fiber.Ctx) error {
	var req partRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	price, err := decimal.NewFromString(req.SellPrice)
	if err != nil {
		return badRequest(c, "invalid sell_price")
	}

	p, err := h.uc.CreatePart(c.Context(), &dto.CreatePartInput{
		Name:      req.Name,
		Brand:     req.Brand,
		Grade:     req.Grade,
		SellPrice: price,
		MinStock:  req.MinStock,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PartHandler) Update(c *fiber.Ctx) error {
	var req partRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	price, err := decimal.NewFromString(req.SellPrice)
	if err != nil {
		return badRequest(c, "invalid sell_price")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	p, err := h.uc.UpdatePart(c.Context(), &dto.UpdatePartInput{
		ID:        c.Params("id"),
		Name:      req.Name,
		Brand:     req.Brand,
		Grade:     req.Grade,
		SellPrice: price,
		MinStock:  req.MinStock,
		IsActive:  isActive,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *PartHandler) Get(c *fiber.Ctx) error {
	p, err := h.uc.GetPart(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *PartHandler) List(c *fiber.Ctx) error {
	filters := &dto.PartFilters{
		Search:   c.Query("search"),
		Grade:    c.Query("grade"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 50),
	}
	if raw := c.Query("is_active"); raw != "" {
		active := raw == "true"
		filters.IsActive = &active
	}

	items, total, err := h.uc.ListParts(c.Context(), filters)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "total": total})
}

func (h *PartHandler) ListLowStock(c *fiber.Ctx) error {
	items, total, err := h.uc.ListLowStock(c.Context(), c.QueryInt("page", 1), c.QueryInt("page_size", 50))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "total": total})
}

func (h *PartHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, part.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, part.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error("part handler error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
