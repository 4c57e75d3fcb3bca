package services

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrOutsideWindow      = errors.New("meal registration window is closed")
	ErrDuplicateMeal      = errors.New("meal already registered")
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("conflicting record")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrIncorrectPassword  = errors.New("incorrect old password")
)
