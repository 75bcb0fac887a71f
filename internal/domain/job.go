package domain

import "time"

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusPartial    JobStatus = "PARTIAL"
)

// IsOpen reports whether the job can still be finalized.
func (s JobStatus) IsOpen() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// Job tracks one batch of image generation units. UpdatedAt is the last
// activity: creation, start, or a unit reporting.
type Job struct {
	ID              string
	UserID          string
	ModelID         string
	Style           string
	Role            string
	Status          JobStatus
	CreditsReserved int
	CreditsUsed     int
	CompletedImages int
	FailedImages    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// Reported is the number of units that finished either way.
func (j Job) Reported() int {
	return j.CompletedImages + j.FailedImages
}

// FinalizeRule decides whether an open job may close. A job whose reserved
// units have all reported always may. Otherwise Force, or no activity since
// IdleSince, is required. Units that never reported are counted as failed.
type FinalizeRule struct {
	Force     bool
	IdleSince time.Time
}

// Allows reports whether j may be finalized under the rule.
func (r FinalizeRule) Allows(j Job) bool {
	return r.Force || j.Reported() >= j.CreditsReserved || j.UpdatedAt.Before(r.IdleSince)
}

// Unused returns the reserved credits that were not consumed.
func (j Job) Unused() int {
	if n := j.CreditsReserved - j.CreditsUsed; n > 0 {
		return n
	}
	return 0
}

// ClassifyOutcome maps aggregate unit counters to a terminal job status.
func ClassifyOutcome(completed, failed int) JobStatus {
	switch {
	case failed == 0:
		return JobStatusCompleted
	case completed == 0:
		return JobStatusFailed
	default:
		return JobStatusPartial
	}
}

// UnitStatus enumerates the states of a single generated image.
type UnitStatus string

const (
	UnitStatusProcessing UnitStatus = "PROCESSING"
	UnitStatusCompleted  UnitStatus = "COMPLETED"
	UnitStatusFailed     UnitStatus = "FAILED"
)

// Unit is one image within a generation batch. GeneratedURLs only ever holds
// durable URLs owned by the upload service.
type Unit struct {
	ID            string
	JobID         string
	UserID        string
	Index         int
	OriginalURL   string
	Style         string
	Role          string
	GeneratedURLs []string
	SelectedURL   *string
	IsFavorited   bool
	ModelID       string
	Status        UnitStatus
	Error         string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// UnitPatch carries user-editable unit fields. Nil fields are left untouched.
type UnitPatch struct {
	SelectedURL *string
	IsFavorited *bool
}
