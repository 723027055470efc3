package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cardvault/internal/services/transfer"
	"cardvault/internal/utils/pagination"
	"cardvault/internal/utils/response"
)

type TransferHandler struct {
	transferService transfer.Service
}

func NewTransferHandler(transferService transfer.Service) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

type createTransferRequest struct {
	FromCardID  string  `json:"from_card_id" validate:"required,uuid4"`
	ToCardID    string  `json:"to_card_id" validate:"required,uuid4"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"max=255"`
}

func (h *TransferHandler) Create(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	var req createTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	fromID, err := uuid.Parse(req.FromCardID)
	if err != nil {
		return response.BadRequest(c, "invalid source card id")
	}
	toID, err := uuid.Parse(req.ToCardID)
	if err != nil {
		return response.BadRequest(c, "invalid target card id")
	}

	if err := h.transferService.Transfer(c.Context(), p, fromID, toID, req.Amount, req.Description); err != nil {
		return renderServiceError(c, err)
	}

	return response.Created(c, fiber.Map{"message": "transfer completed"})
}

// History lists transfers touching one card, newest first.
func (h *TransferHandler) History(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	cardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid card id")
	}

	pg := pagination.ParseFromRequest(c)
	transfers, total, err := h.transferService.History(c.Context(), p, cardID, pg.Limit, pg.Offset)
	if err != nil {
		return renderServiceError(c, err)
	}
	pg.Total = total

	return c.JSON(pagination.Response(pg, transfers))
}
