package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transfer statuses
type TransferStatus string

const (
	TransferStatusCompleted TransferStatus = "COMPLETED"
)

// Transfer is an append-only audit record of a funds movement between two
// cards. Rows are written once at commit time and never mutated.
type Transfer struct {
	ID           uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	FromCardID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"from_card_id"`
	ToCardID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"to_card_id"`
	Amount       int64          `gorm:"not null" json:"-"` // minor units
	Status       TransferStatus `gorm:"not null" json:"status"`
	Description  string         `json:"description,omitempty"`
	TransferDate time.Time      `gorm:"not null" json:"transfer_date"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (t *Transfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
