package domain

import "errors"

// Familias de error. Los servicios envuelven estas sentinelas con errores
// específicos y la capa HTTP las traduce a códigos de estado con errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrOTPExpired      = errors.New("otp expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrInvalidCode     = errors.New("invalid code")
	ErrRateLimited     = errors.New("rate limited")
	ErrDeliveryFailed  = errors.New("email delivery failed")
)
