package domain

import (
	"encoding/json"
	"time"
)

// ThemeStatus enumerates theme generation states.
type ThemeStatus string

const (
	ThemeStatusQueued         ThemeStatus = "QUEUED"
	ThemeStatusProcessing     ThemeStatus = "PROCESSING"
	ThemeStatusCompleted      ThemeStatus = "COMPLETED"
	ThemeStatusSafelistFailed ThemeStatus = "SAFELIST_FAILED"
	ThemeStatusFailed         ThemeStatus = "FAILED"
)

// IsTerminal reports whether the record will not change without a re-check.
func (s ThemeStatus) IsTerminal() bool {
	switch s {
	case ThemeStatusCompleted, ThemeStatusSafelistFailed, ThemeStatusFailed:
		return true
	}
	return false
}

// ThemeRecord is one theme generation request and its outcome.
type ThemeRecord struct {
	ID           string
	UserID       string
	InvitationID *string
	Prompt       string
	ModelID      string
	Theme        json.RawMessage
	Status       ThemeStatus
	FailReason   *string
	CreditsUsed  int
	InputTokens  *int
	OutputTokens *int
	Cost         *float64
	DurationMS   *int64
	Request      json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ThemeResult carries the terminal fields written when processing ends.
type ThemeResult struct {
	Status       ThemeStatus
	Theme        json.RawMessage
	FailReason   *string
	CreditsUsed  int
	InputTokens  *int
	OutputTokens *int
	Cost         *float64
	DurationMS   *int64
}
