package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cardvault/internal/services/user"
	"cardvault/internal/utils/pagination"
	"cardvault/internal/utils/response"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	created, err := h.userService.Register(user.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return renderServiceError(c, err)
	}

	return response.Created(c, fiber.Map{
		"id":    created.ID,
		"email": created.Email,
		"name":  created.Name,
		"role":  created.Role,
	})
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}

	found, err := h.userService.Get(p, id)
	if err != nil {
		return renderServiceError(c, err)
	}

	return response.Success(c, found)
}

// Me returns the calling user's own profile.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	found, err := h.userService.Get(p, p.UserID)
	if err != nil {
		return renderServiceError(c, err)
	}

	return response.Success(c, found)
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	pg := pagination.ParseFromRequest(c)
	users, total, err := h.userService.List(p, pg.Limit, pg.Offset)
	if err != nil {
		return renderServiceError(c, err)
	}
	pg.Total = total

	return c.JSON(pagination.Response(pg, users))
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	p, err := principalFromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}

	if err := h.userService.Delete(p, id); err != nil {
		return renderServiceError(c, err)
	}

	return response.Success(c, fiber.Map{"message": "user deleted"})
}
