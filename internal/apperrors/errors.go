package apperrors

import (
	"errors"
)

// Shared error taxonomy for the wallet core. Every failure a caller can act
// on maps to one of these sentinels; callers match with errors.Is and wrap
// with fmt.Errorf("...: %w", ...) to add context.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrInvalidCode       = errors.New("invalid confirmation code")
	ErrCodeExpired       = errors.New("confirmation code expired")
	ErrConflict          = errors.New("conflicting concurrent update")
	ErrDuplicateKey      = errors.New("duplicate reference")
)
