package repositories

import (
	"errors"
	"fmt"

	"cardvault/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransferRepository reads the append-only transfer audit log. Writes go
// through CardRepository.CreateTransfer so they share the balance-mutation
// transaction.
type TransferRepository interface {
	GetByID(id uuid.UUID) (*models.Transfer, error)
	FindByCard(cardID uuid.UUID, limit, offset int) ([]models.Transfer, int64, error)
}

type transferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) GetByID(id uuid.UUID) (*models.Transfer, error) {
	var transfer models.Transfer
	if err := r.db.First(&transfer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return &transfer, nil
}

func (r *transferRepository) FindByCard(cardID uuid.UUID, limit, offset int) ([]models.Transfer, int64, error) {
	query := r.db.Model(&models.Transfer{}).
		Where("from_card_id = ? OR to_card_id = ?", cardID, cardID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	var transfers []models.Transfer
	if err := query.Order("transfer_date DESC").Limit(limit).Offset(offset).Find(&transfers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	return transfers, total, nil
}
