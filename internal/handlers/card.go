package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cardvault/internal/services/authz"
	"cardvault/internal/services/card"
	"cardvault/internal/utils/pagination"
	"cardvault/internal/utils/response"
)

type CardHandler struct {
	cardService card.Service
}

func NewCardHandler(cardService card.Service) *CardHandler {
	return &CardHandler{cardService: cardService}
}

type createCardRequest struct {
	OwnerID        string  `json:"owner_id" validate:"required,uuid4"`
	Number         string  `json:"number" validate:"required,len=16,numeric"`
	ExpiryDate     string  `json:"expiry_date" validate:"required"`
	InitialBalance float64 `json:"initial_balance" validate:"gte=0"`
}

type updateCardRequest struct {
	Number     string `json:"number" validate:"required,len=16,numeric"`
	ExpiryDate string `json:"expiry_date" validate:"required"`
}

// parseExpiry accepts either a full RFC 3339 timestamp or a "YYYY-MM"
// month. A bare month expires at the end of that month.
func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.AddDate(0, 1, 0).Add(-time.Second), nil
}

func (h *CardHandler) Create(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var req createCardRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return response.BadRequest(c, "invalid owner id")
	}
	expiry, err := parseExpiry(req.ExpiryDate)
	if err != nil {
		return response.BadRequest(c, "invalid expiry date")
	}

	view, err := h.cardService.Create(c.Context(), p, card.CreateCardInput{
		OwnerID:        ownerID,
		Number:         req.Number,
		ExpiryDate:     expiry,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		return renderServiceError(c, err)
	}

	return response.Created(c, view)
}

func (h *CardHandler) Get(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid card id")
	}

	view, err := h.cardService.Get(c.Context(), p, id)
	if err != nil {
		return renderServiceError(c, err)
	}

	return response.Success(c, view)
}

// List returns the caller's own cards, optionally filtered by mask
// substring and status.
func (h *CardHandler) List(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	pg := pagination.ParseFromRequest(c)
	filter := card.ListFilter{
		Mask:   c.Query("mask"),
		Status: c.Query("status"),
	}

	views, total, err := h.cardService.List(c.Context(), p, p.UserID, filter, pg.Limit, pg.Offset)
	if err != nil {
		return renderServiceError(c, err)
	}
	pg.Total = total

	return c.JSON(pagination.Response(pg, views))
}

func (h *CardHandler) ListAll(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	pg := pagination.ParseFromRequest(c)
	views, total, err := h.cardService.ListAll(c.Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return renderServiceError(c, err)
	}
	pg.Total = total

	return c.JSON(pagination.Response(pg, views))
}

func (h *CardHandler) Update(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid card id")
	}

	var req updateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	expiry, err := parseExpiry(req.ExpiryDate)
	if err != nil {
		return response.BadRequest(c, "invalid expiry date")
	}

	view, err := h.cardService.Update(c.Context(), p, id, card.UpdateCardInput{
		Number:     req.Number,
		ExpiryDate: expiry,
	})
	if err != nil {
		return renderServiceError(c, err)
	}

	return response.Success(c, view)
}

func (h *CardHandler) Delete(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid card id")
	}

	if err := h.cardService.Delete(c.Context(), p, id); err != nil {
		return renderServiceError(c, err)
	}

	return response.Success(c, fiber.Map{"message": "card deleted"})
}

func (h *CardHandler) Block(c *fiber.Ctx) error {
	return h.lifecycle(c, h.cardService.Block, "card blocked")
}

func (h *CardHandler) Activate(c *fiber.Ctx) error {
	return h.lifecycle(c, h.cardService.Activate, "card activated")
}

// RequestBlock lets a cardholder block their own card.
func (h *CardHandler) RequestBlock(c *fiber.Ctx) error {
	return h.lifecycle(c, h.cardService.RequestBlock, "card blocked")
}

func (h *CardHandler) lifecycle(c *fiber.Ctx, op func(ctx context.Context, p authz.Principal, id uuid.UUID) error, message string) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid card id")
	}

	if err := op(c.Context(), p, id); err != nil {
		return renderServiceError(c, err)
	}

	return response.Success(c, fiber.Map{"message": message})
}

func (h *CardHandler) GetBalance(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid card id")
	}

	balance, err := h.cardService.GetBalance(c.Context(), p, id)
	if err != nil {
		return renderServiceError(c, err)
	}

	return response.Success(c, fiber.Map{"balance": balance})
}
