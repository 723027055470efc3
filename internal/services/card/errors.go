package card

import "errors"

// Service errors
var (
	ErrInvalidCardNumber      = errors.New("card number must be exactly 16 digits")
	ErrExpiryNotFuture        = errors.New("expiry date must be in the future")
	ErrNegativeBalance        = errors.New("initial balance cannot be negative")
	ErrInvalidStateTransition = errors.New("card status does not allow this transition")
)
