package card

import (
	"time"

	"github.com/google/uuid"
)

// CreateCardInput carries the fields needed to issue a card.
type CreateCardInput struct {
	OwnerID        uuid.UUID
	Number         string
	ExpiryDate     time.Time
	InitialBalance float64 // defaults to zero
}

// UpdateCardInput carries the fields an administrative update may replace.
type UpdateCardInput struct {
	Number     string
	ExpiryDate time.Time
}

// ListFilter narrows a card listing. Zero values mean "no filter".
type ListFilter struct {
	Mask   string // case-insensitive substring of the mask
	Status string // exact status match
}
