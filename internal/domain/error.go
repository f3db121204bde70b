package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrAuthRequired        = errors.New("authentication required")
	ErrForbidden           = errors.New("authorization denied")
	ErrSessionExpired      = errors.New("session expired or revoked")
	ErrJobAlreadyTerminal  = errors.New("job already reached a terminal state")
	ErrProviderRateLimited = errors.New("upstream provider rate limited")
	ErrProviderUnavailable = errors.New("upstream provider unavailable")
	ErrInvalidExecContext  = errors.New("invalid query execution context")
	ErrReadDatabaseRow     = errors.New("failed to read database row")
)

// Retryable reports whether a provider error is transient and worth
// another attempt before marking the job failed.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderRateLimited) || errors.Is(err, ErrProviderUnavailable)
}
