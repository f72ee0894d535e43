package contract

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrStorage         = errors.New("order storage failed")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
)
