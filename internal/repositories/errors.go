package repositories

import "errors"

var (
	ErrCardNotFound     = errors.New("card not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrTransferNotFound = errors.New("transfer not found")
	ErrDuplicateMask    = errors.New("card mask already exists")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrVersionConflict  = errors.New("card was modified concurrently")
)
