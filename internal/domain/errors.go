package domain

import "errors"

// Sentinel errors for domain-level error discrimination. Services wrap these
// with %w so handlers can map outcomes to HTTP status codes via errors.Is
// without leaking infrastructure details.
//
// ErrInvalidToken deliberately covers decode failures, signature expiry and
// token-key mismatch alike: callers must not be able to distinguish an
// expired token from a forged one.
var (
	ErrPasswordPolicy     = errors.New("password policy violation")
	ErrValidation         = errors.New("validation error")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidPIN         = errors.New("invalid PIN")
	ErrExpiredPIN         = errors.New("PIN has expired")
	ErrTooManyPINAttempts = errors.New("too many invalid PIN attempts")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfirmed       = errors.New("account has not been confirmed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("not found")
)
