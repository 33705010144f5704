package domain

import "errors"

var (
	ErrUnexpectedDatabase = errors.New("unexpected-database-error")
	ErrUserNotFound       = errors.New("user-not-found")
)

var (
	ErrMissingToken          = errors.New("missing-token")
	ErrInvalidSigningMethod  = errors.New("invalid-signing-method")
	ErrExpiredToken          = errors.New("expired-token")
	ErrInvalidTokenSignature = errors.New("invalid-token-signature")
	ErrCorruptedToken        = errors.New("corrupted-token")
	ErrTokenGeneration       = errors.New("token-generation-error")
)
