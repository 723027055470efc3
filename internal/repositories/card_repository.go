package repositories

import (
	"time"

	"cardvault/internal/models"

	"github.com/google/uuid"
)

// CardRepository defines the interface for card persistence. Updates are
// conflict-aware: a write against a stale version fails with
// ErrVersionConflict instead of silently overwriting.
type CardRepository interface {
	// Core card operations
	Create(card *models.Card) error
	GetByID(id uuid.UUID) (*models.Card, error)
	FindByOwner(ownerID uuid.UUID, maskFilter string, status models.CardStatus, limit, offset int) ([]models.Card, int64, error)
	FindAll(limit, offset int) ([]models.Card, int64, error)
	Update(card *models.Card) error
	Delete(id uuid.UUID) error

	// Expiry sweep support
	FindDueForExpiry(asOf time.Time) ([]models.Card, error)

	// Transfer audit records, written in the same transaction as the
	// balance mutations they describe
	CreateTransfer(transfer *models.Transfer) error

	// ExecuteInTransaction runs fn against a transactional repository;
	// any error rolls the whole unit back
	ExecuteInTransaction(fn func(CardRepository) error) error
}
