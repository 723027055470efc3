package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Card statuses
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Card represents an issued bank card. The full card number is stored only
// in encrypted form; the mask is the only displayable shape of it.
type Card struct {
	ID           uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	NumberCipher string     `gorm:"not null" json:"-"`
	Mask         string     `gorm:"uniqueIndex;not null" json:"mask"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	ExpiryDate   time.Time  `gorm:"not null" json:"expiry_date"`
	Status       CardStatus `gorm:"not null;default:'ACTIVE'" json:"status"`
	Balance      int64      `gorm:"not null;default:0" json:"-"` // minor units
	Version      uint       `gorm:"not null;default:0" json:"-"` // optimistic lock
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CardView is the outward representation of a card. It never carries the
// encrypted number.
type CardView struct {
	ID         uuid.UUID  `json:"id"`
	Mask       string     `json:"mask"`
	ExpiryDate time.Time  `json:"expiry_date"`
	Status     CardStatus `json:"status"`
	Balance    float64    `json:"balance"`
}

// View maps a card to its outward representation.
func (c *Card) View() CardView {
	return CardView{
		ID:         c.ID,
		Mask:       c.Mask,
		ExpiryDate: c.ExpiryDate,
		Status:     c.Status,
		Balance:    FromMinorUnits(c.Balance),
	}
}
