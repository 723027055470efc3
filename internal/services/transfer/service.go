// Package transfer implements the atomic funds movement between two cards
// of the same owner. All precondition checks and both balance mutations
// commit as one unit or not at all.
package transfer

import (
	"context"
	"errors"
	"time"

	"cardvault/internal/models"
	"cardvault/internal/repositories"
	"cardvault/internal/repositories/cache"
	"cardvault/internal/services/authz"

	"github.com/google/uuid"
)

// Service defines the transfer engine.
type Service interface {
	// Transfer moves amount from one card to another. The caller must own
	// the source card; the engine itself verifies that both cards share an
	// owner. A version conflict aborts the whole transfer and may be
	// retried by the caller.
	Transfer(ctx context.Context, p authz.Principal, fromCardID, toCardID uuid.UUID, amount float64, description string) error

	// History lists transfers touching a card, newest first.
	History(ctx context.Context, p authz.Principal, cardID uuid.UUID, limit, offset int) ([]models.Transfer, int64, error)
}

type service struct {
	cards     repositories.CardRepository
	transfers repositories.TransferRepository
	cache     *cache.CacheService
}

// NewService creates a new transfer engine. The cache is optional; when
// present, both cards' entries are invalidated after a committed transfer
// so cached reads never show one side of the mutation.
func NewService(cards repositories.CardRepository, transfers repositories.TransferRepository, cacheService *cache.CacheService) Service {
	if cards == nil {
		panic("card repository is required")
	}
	if transfers == nil {
		panic("transfer repository is required")
	}
	return &service{
		cards:     cards,
		transfers: transfers,
		cache:     cacheService,
	}
}

func (s *service) Transfer(ctx context.Context, p authz.Principal, fromCardID, toCardID uuid.UUID, amount float64, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	minor, err := models.ToMinorUnits(amount)
	if err != nil {
		return err
	}

	// The gate requires the caller to own the source card. Ownership is
	// resolved here; the same-owner rule below is about the two cards'
	// relation to each other, not about the caller.
	source, err := s.cards.GetByID(fromCardID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return ErrSourceCardNotFound
		}
		return err
	}
	if err := authz.Authorize(p, authz.OpTransfer, source.OwnerID); err != nil {
		return err
	}

	// Existence outranks the self-transfer rule, so the guard sits after
	// the source load.
	if fromCardID == toCardID {
		return ErrSelfTransfer
	}

	// Check order is fixed: existence, ownership, status, sufficiency.
	err = s.cards.ExecuteInTransaction(func(tx repositories.CardRepository) error {
		fromCard, err := tx.GetByID(fromCardID)
		if err != nil {
			if errors.Is(err, repositories.ErrCardNotFound) {
				return ErrSourceCardNotFound
			}
			return err
		}
		toCard, err := tx.GetByID(toCardID)
		if err != nil {
			if errors.Is(err, repositories.ErrCardNotFound) {
				return ErrTargetCardNotFound
			}
			return err
		}

		if fromCard.OwnerID != toCard.OwnerID {
			return ErrDifferentOwners
		}
		if fromCard.Status != models.CardStatusActive || toCard.Status != models.CardStatusActive {
			return ErrCardNotActive
		}
		if fromCard.Balance < minor {
			return ErrInsufficientFunds
		}

		fromCard.Balance -= minor
		toCard.Balance += minor

		if err := tx.Update(fromCard); err != nil {
			return err
		}
		if err := tx.Update(toCard); err != nil {
			return err
		}

		return tx.CreateTransfer(&models.Transfer{
			FromCardID:   fromCardID,
			ToCardID:     toCardID,
			Amount:       minor,
			Status:       models.TransferStatusCompleted,
			Description:  description,
			TransferDate: time.Now(),
		})
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateCard(ctx, fromCardID)
		_ = s.cache.InvalidateCard(ctx, toCardID)
	}
	return nil
}

func (s *service) History(ctx context.Context, p authz.Principal, cardID uuid.UUID, limit, offset int) ([]models.Transfer, int64, error) {
	card, err := s.cards.GetByID(cardID)
	if err != nil {
		return nil, 0, err
	}
	if err := authz.Authorize(p, authz.OpTransferHistory, card.OwnerID); err != nil {
		return nil, 0, err
	}
	return s.transfers.FindByCard(cardID, limit, offset)
}
