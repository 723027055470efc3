// Package handlers contains the fiber HTTP handlers. Handlers parse and
// validate requests, build the calling principal from JWT claims, and
// translate service errors into the HTTP taxonomy.
package handlers

import (
	"errors"

	"cardvault/internal/models"
	"cardvault/internal/repositories"
	"cardvault/internal/services/authz"
	"cardvault/internal/services/card"
	"cardvault/internal/services/transfer"
	"cardvault/internal/services/user"
	"cardvault/internal/utils/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// extractUserClaims reads the claims the auth middleware stored.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func principalFromCtx(c *fiber.Ctx) (authz.Principal, error) {
	claims, err := extractUserClaims(c)
	if err != nil {
		return authz.Principal{}, err
	}
	return authz.Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

// renderServiceError maps expected, typed failures to their HTTP statuses.
// Anything unexpected is reported as a bare internal error.
func renderServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrCardNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrTransferNotFound):
		return response.NotFound(c, err.Error())

	case errors.Is(err, authz.ErrForbidden):
		return response.Forbidden(c, err.Error())

	case errors.Is(err, repositories.ErrDuplicateMask),
		errors.Is(err, repositories.ErrDuplicateEmail),
		errors.Is(err, repositories.ErrVersionConflict):
		return response.Conflict(c, err.Error())

	case errors.Is(err, transfer.ErrDifferentOwners),
		errors.Is(err, transfer.ErrCardNotActive),
		errors.Is(err, transfer.ErrInsufficientFunds),
		errors.Is(err, transfer.ErrSelfTransfer),
		errors.Is(err, card.ErrInvalidStateTransition):
		return response.UnprocessableEntity(c, err.Error())

	case errors.Is(err, transfer.ErrInvalidAmount),
		errors.Is(err, card.ErrInvalidCardNumber),
		errors.Is(err, card.ErrExpiryNotFuture),
		errors.Is(err, card.ErrNegativeBalance),
		errors.Is(err, models.ErrAmountPrecision),
		errors.Is(err, user.ErrUnknownRole),
		errors.Is(err, user.ErrWeakPassword):
		return response.BadRequest(c, err.Error())
	}

	return response.ServerError(c)
}
