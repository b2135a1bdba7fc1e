package services

import "errors"

// Common service errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrDuplicate       = errors.New("duplicate record")
	ErrInactiveUser    = errors.New("user is inactive")
)
