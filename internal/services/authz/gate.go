// Package authz is the single authorization decision point. Every
// operation on a card or user is mapped here from (principal, operation,
// owner of the target) to allow or deny; no caller carries its own role
// checks.
package authz

import (
	"errors"

	"cardvault/internal/models"

	"github.com/google/uuid"
)

// ErrForbidden is returned for every denied combination.
var ErrForbidden = errors.New("operation not permitted")

// Operation names an action gated by the authorization table.
type Operation string

const (
	OpCardCreate       Operation = "card:create"
	OpCardRead         Operation = "card:read"
	OpCardList         Operation = "card:list"
	OpCardListAll      Operation = "card:list-all"
	OpCardUpdate       Operation = "card:update"
	OpCardDelete       Operation = "card:delete"
	OpCardBlock        Operation = "card:block"
	OpCardActivate     Operation = "card:activate"
	OpCardRequestBlock Operation = "card:request-block"
	OpBalanceRead      Operation = "card:balance"
	OpTransfer         Operation = "transfer:create"
	OpTransferHistory  Operation = "transfer:history"

	OpUserRead   Operation = "user:read"
	OpUserList   Operation = "user:list"
	OpUserDelete Operation = "user:delete"
)

// Principal is the authenticated identity making a request.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

type accessRule int

const (
	adminOnly accessRule = iota
	ownerOrAdmin
	ownerOnly
)

var rules = map[Operation]accessRule{
	OpCardCreate:   adminOnly,
	OpCardUpdate:   adminOnly,
	OpCardDelete:   adminOnly,
	OpCardBlock:    adminOnly,
	OpCardActivate: adminOnly,
	OpCardListAll:  adminOnly,
	OpUserList:     adminOnly,
	OpUserDelete:   adminOnly,

	OpCardRead:        ownerOrAdmin,
	OpCardList:        ownerOrAdmin,
	OpBalanceRead:     ownerOrAdmin,
	OpTransferHistory: ownerOrAdmin,
	OpUserRead:        ownerOrAdmin,

	OpCardRequestBlock: ownerOnly,
	OpTransfer:         ownerOnly,
}

// Authorize decides whether the principal may perform op against a target
// owned by ownerID. Operations without a target pass uuid.Nil. The gate is
// stateless and pure; unknown operations are denied.
func Authorize(p Principal, op Operation, ownerID uuid.UUID) error {
	rule, known := rules[op]
	if !known {
		return ErrForbidden
	}

	switch rule {
	case adminOnly:
		if p.Role == models.RoleAdmin {
			return nil
		}
	case ownerOrAdmin:
		if p.Role == models.RoleAdmin {
			return nil
		}
		if p.UserID != uuid.Nil && p.UserID == ownerID {
			return nil
		}
	case ownerOnly:
		if p.Role == models.RoleUser && p.UserID != uuid.Nil && p.UserID == ownerID {
			return nil
		}
	}
	return ErrForbidden
}
