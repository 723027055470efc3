package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cardvault/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// likeEscaper neutralizes every LIKE metacharacter, backslash included,
// so a filter value only ever matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type cardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(card *models.Card) error {
	if err := r.db.Create(card).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateMask
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *cardRepository) GetByID(id uuid.UUID) (*models.Card, error) {
	var card models.Card
	if err := r.db.First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *cardRepository) FindByOwner(ownerID uuid.UUID, maskFilter string, status models.CardStatus, limit, offset int) ([]models.Card, int64, error) {
	query := r.db.Model(&models.Card{}).Where("owner_id = ?", ownerID)
	if maskFilter != "" {
		query = query.Where("mask ILIKE ?", "%"+escapeLike(maskFilter)+"%")
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	var cards []models.Card
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&cards).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, total, nil
}

func (r *cardRepository) FindAll(limit, offset int) ([]models.Card, int64, error) {
	var total int64
	if err := r.db.Model(&models.Card{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	var cards []models.Card
	if err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&cards).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, total, nil
}

// Update persists a previously fetched card. The version column guards
// against lost updates: the UPDATE matches the version the caller read, so
// a concurrent writer makes this a zero-row update.
func (r *cardRepository) Update(card *models.Card) error {
	readVersion := card.Version
	result := r.db.Model(&models.Card{}).
		Where("id = ? AND version = ?", card.ID, readVersion).
		Updates(map[string]interface{}{
			"number_cipher": card.NumberCipher,
			"mask":          card.Mask,
			"expiry_date":   card.ExpiryDate,
			"status":        card.Status,
			"balance":       card.Balance,
			"version":       readVersion + 1,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateMask
		}
		return fmt.Errorf("failed to update card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.Card{}).Where("id = ?", card.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}
		if count == 0 {
			return ErrCardNotFound
		}
		return ErrVersionConflict
	}
	card.Version = readVersion + 1
	return nil
}

func (r *cardRepository) Delete(id uuid.UUID) error {
	result := r.db.Delete(&models.Card{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *cardRepository) FindDueForExpiry(asOf time.Time) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.
		Where("expiry_date <= ? AND status <> ?", asOf, models.CardStatusExpired).
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring cards: %w", err)
	}
	return cards, nil
}

func (r *cardRepository) CreateTransfer(transfer *models.Transfer) error {
	if err := r.db.Create(transfer).Error; err != nil {
		return fmt.Errorf("failed to create transfer record: %w", err)
	}
	return nil
}

func (r *cardRepository) ExecuteInTransaction(fn func(CardRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&cardRepository{db: tx})
	})
}
