package domain

import "errors"

var (
	ErrLimitExceeded      = errors.New("fortune limit exceeded")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnauthenticated    = errors.New("unauthenticated")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")

	ErrInvalidFortuneType = errors.New("invalid fortune type")
	ErrInvalidReading     = errors.New("invalid reading request")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrOracleUnavailable  = errors.New("interpretation service unavailable")

	ErrRitualNotFound    = errors.New("ritual not found")
	ErrInsufficientCoins = errors.New("insufficient coins")
)
