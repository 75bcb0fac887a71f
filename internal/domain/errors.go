package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidAmount        = errors.New("credit amount must be positive")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrUnknownModel         = errors.New("unknown model")
	ErrProviderFailure      = errors.New("provider failure")
	ErrStructuralValidation = errors.New("structural validation")
	ErrSafelistViolation    = errors.New("safelist violation")
	ErrAlreadyFinalized     = errors.New("already finalized")
	ErrJobInProgress        = errors.New("job still in progress")
	ErrRateLimited          = errors.New("rate limited")
	ErrQueueFull            = errors.New("task queue full")
)
