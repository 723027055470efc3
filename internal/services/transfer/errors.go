package transfer

import (
	"errors"
	"fmt"

	"cardvault/internal/repositories"
)

// Engine errors. The not-found variants wrap the repository sentinel so
// callers can match either the specific side or the general condition.
var (
	ErrSourceCardNotFound = fmt.Errorf("source %w", repositories.ErrCardNotFound)
	ErrTargetCardNotFound = fmt.Errorf("target %w", repositories.ErrCardNotFound)

	ErrInvalidAmount     = errors.New("transfer amount must be positive")
	ErrSelfTransfer      = errors.New("cannot transfer to the same card")
	ErrDifferentOwners   = errors.New("cards do not belong to the same owner")
	ErrCardNotActive     = errors.New("both cards must be active")
	ErrInsufficientFunds = errors.New("insufficient funds on source card")
)
