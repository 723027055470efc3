// Package card implements card issuance, lifecycle transitions, and
// card-scoped reads. All access decisions go through the authz gate after
// the store resolves ownership.
package card

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardvault/internal/cardcrypto"
	"cardvault/internal/models"
	"cardvault/internal/repositories"
	"cardvault/internal/repositories/cache"
	"cardvault/internal/services/authz"

	"github.com/google/uuid"
)

// Service defines card operations. Every method takes the calling
// principal; authorization failures surface as authz.ErrForbidden.
type Service interface {
	Create(ctx context.Context, p authz.Principal, in CreateCardInput) (*models.CardView, error)
	Get(ctx context.Context, p authz.Principal, id uuid.UUID) (*models.CardView, error)
	List(ctx context.Context, p authz.Principal, ownerID uuid.UUID, filter ListFilter, limit, offset int) ([]models.CardView, int64, error)
	ListAll(ctx context.Context, p authz.Principal, limit, offset int) ([]models.CardView, int64, error)
	Update(ctx context.Context, p authz.Principal, id uuid.UUID, in UpdateCardInput) (*models.CardView, error)
	Delete(ctx context.Context, p authz.Principal, id uuid.UUID) error
	Block(ctx context.Context, p authz.Principal, id uuid.UUID) error
	Activate(ctx context.Context, p authz.Principal, id uuid.UUID) error
	RequestBlock(ctx context.Context, p authz.Principal, id uuid.UUID) error
	GetBalance(ctx context.Context, p authz.Principal, id uuid.UUID) (float64, error)
	ExpireDue(ctx context.Context, asOf time.Time) (int, error)
}

type service struct {
	cards  repositories.CardRepository
	users  repositories.UserRepository
	cipher *cardcrypto.Cipher
	cache  *cache.CacheService
}

// NewService creates a new card service. The cache is optional.
func NewService(
	cards repositories.CardRepository,
	users repositories.UserRepository,
	cipher *cardcrypto.Cipher,
	cacheService *cache.CacheService,
) Service {
	if cards == nil {
		panic("card repository is required")
	}
	if users == nil {
		panic("user repository is required")
	}
	if cipher == nil {
		panic("cipher is required")
	}
	return &service{
		cards:  cards,
		users:  users,
		cipher: cipher,
		cache:  cacheService,
	}
}

func (s *service) Create(ctx context.Context, p authz.Principal, in CreateCardInput) (*models.CardView, error) {
	if err := authz.Authorize(p, authz.OpCardCreate, uuid.Nil); err != nil {
		return nil, err
	}

	if !cardcrypto.IsCardNumber(in.Number) {
		return nil, ErrInvalidCardNumber
	}
	if !in.ExpiryDate.After(time.Now()) {
		return nil, ErrExpiryNotFuture
	}
	if in.InitialBalance < 0 {
		return nil, ErrNegativeBalance
	}

	// Owner must exist before a card can reference it.
	if _, err := s.users.GetByID(in.OwnerID); err != nil {
		return nil, err
	}

	balance, err := models.ToMinorUnits(in.InitialBalance)
	if err != nil {
		return nil, err
	}

	cipherText, err := s.cipher.Encrypt(in.Number)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		NumberCipher: cipherText,
		Mask:         cardcrypto.Mask(in.Number),
		OwnerID:      in.OwnerID,
		ExpiryDate:   in.ExpiryDate,
		Status:       models.CardStatusActive,
		Balance:      balance,
	}

	if err := s.cards.Create(card); err != nil {
		return nil, err
	}

	s.cacheCard(ctx, card)
	view := card.View()
	return &view, nil
}

func (s *service) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (*models.CardView, error) {
	card, err := s.loadCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.OpCardRead, card.OwnerID); err != nil {
		return nil, err
	}
	view := card.View()
	return &view, nil
}

func (s *service) List(ctx context.Context, p authz.Principal, ownerID uuid.UUID, filter ListFilter, limit, offset int) ([]models.CardView, int64, error) {
	if err := authz.Authorize(p, authz.OpCardList, ownerID); err != nil {
		return nil, 0, err
	}
	if _, err := s.users.GetByID(ownerID); err != nil {
		return nil, 0, err
	}

	cards, total, err := s.cards.FindByOwner(ownerID, filter.Mask, models.CardStatus(filter.Status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return views(cards), total, nil
}

func (s *service) ListAll(ctx context.Context, p authz.Principal, limit, offset int) ([]models.CardView, int64, error) {
	if err := authz.Authorize(p, authz.OpCardListAll, uuid.Nil); err != nil {
		return nil, 0, err
	}

	cards, total, err := s.cards.FindAll(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return views(cards), total, nil
}

// Update is the administrative direct field update. It replaces the card
// number and expiry date, re-deriving cipher and mask; status and balance
// are untouched.
func (s *service) Update(ctx context.Context, p authz.Principal, id uuid.UUID, in UpdateCardInput) (*models.CardView, error) {
	if err := authz.Authorize(p, authz.OpCardUpdate, uuid.Nil); err != nil {
		return nil, err
	}
	if !cardcrypto.IsCardNumber(in.Number) {
		return nil, ErrInvalidCardNumber
	}
	if !in.ExpiryDate.After(time.Now()) {
		return nil, ErrExpiryNotFuture
	}

	card, err := s.cards.GetByID(id)
	if err != nil {
		return nil, err
	}

	cipherText, err := s.cipher.Encrypt(in.Number)
	if err != nil {
		return nil, err
	}

	card.NumberCipher = cipherText
	card.Mask = cardcrypto.Mask(in.Number)
	card.ExpiryDate = in.ExpiryDate

	if err := s.cards.Update(card); err != nil {
		return nil, err
	}

	s.invalidateCard(ctx, id)
	view := card.View()
	return &view, nil
}

func (s *service) Delete(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.Authorize(p, authz.OpCardDelete, uuid.Nil); err != nil {
		return err
	}
	if err := s.cards.Delete(id); err != nil {
		return err
	}
	s.invalidateCard(ctx, id)
	return nil
}

// Block is the administrative ACTIVE -> BLOCKED transition.
func (s *service) Block(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.Authorize(p, authz.OpCardBlock, uuid.Nil); err != nil {
		return err
	}
	return s.transition(ctx, id, models.CardStatusActive, models.CardStatusBlocked)
}

// Activate is the administrative BLOCKED -> ACTIVE transition.
func (s *service) Activate(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.Authorize(p, authz.OpCardActivate, uuid.Nil); err != nil {
		return err
	}
	return s.transition(ctx, id, models.CardStatusBlocked, models.CardStatusActive)
}

// RequestBlock is the owner self-service ACTIVE -> BLOCKED transition.
// Only the card's owner may trigger it.
func (s *service) RequestBlock(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	card, err := s.loadCard(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(p, authz.OpCardRequestBlock, card.OwnerID); err != nil {
		return err
	}
	return s.transition(ctx, id, models.CardStatusActive, models.CardStatusBlocked)
}

func (s *service) GetBalance(ctx context.Context, p authz.Principal, id uuid.UUID) (float64, error) {
	card, err := s.loadCard(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := authz.Authorize(p, authz.OpBalanceRead, card.OwnerID); err != nil {
		return 0, err
	}
	return models.FromMinorUnits(card.Balance), nil
}

// ExpireDue marks every card whose expiry date has passed as EXPIRED. This
// sweep is the only path into the EXPIRED state. Version conflicts are
// skipped; the next sweep picks the card up again.
func (s *service) ExpireDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.cards.FindDueForExpiry(asOf)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		c := due[i]
		c.Status = models.CardStatusExpired
		if err := s.cards.Update(&c); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				continue
			}
			return expired, fmt.Errorf("failed to expire card %s: %w", c.ID, err)
		}
		s.invalidateCard(ctx, c.ID)
		expired++
	}
	return expired, nil
}

// transition performs a guarded status change; any other current status
// fails without touching the card.
func (s *service) transition(ctx context.Context, id uuid.UUID, from, to models.CardStatus) error {
	card, err := s.cards.GetByID(id)
	if err != nil {
		return err
	}
	if card.Status != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, card.Status, to)
	}

	card.Status = to
	if err := s.cards.Update(card); err != nil {
		return err
	}
	s.invalidateCard(ctx, id)
	return nil
}

// loadCard reads through the cache when one is configured.
func (s *service) loadCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	if s.cache != nil {
		if card, err := s.cache.GetCard(ctx, id); err == nil {
			return card, nil
		}
	}

	card, err := s.cards.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.cacheCard(ctx, card)
	return card, nil
}

func (s *service) cacheCard(ctx context.Context, card *models.Card) {
	if s.cache != nil {
		_ = s.cache.CacheCard(ctx, card)
	}
}

func (s *service) invalidateCard(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.InvalidateCard(ctx, id)
	}
}

func views(cards []models.Card) []models.CardView {
	out := make([]models.CardView, len(cards))
	for i := range cards {
		out[i] = cards[i].View()
	}
	return out
}
