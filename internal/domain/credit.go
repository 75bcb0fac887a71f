package domain

import "time"

// ReferenceType tags ledger entries with the kind of record that caused them.
type ReferenceType string

const (
	RefGenerationJob     ReferenceType = "generation_job"
	RefGenerationRelease ReferenceType = "generation_release"
	RefGenerationRefund  ReferenceType = "generation_refund"
	RefThemeGeneration   ReferenceType = "theme_generation"
	RefThemeRefund       ReferenceType = "theme_refund"
	RefAdminGrant        ReferenceType = "admin_grant"
)

// CreditRef identifies the job or record a ledger mutation belongs to.
type CreditRef struct {
	Type        ReferenceType
	ID          string
	Description string
}

// LedgerEntry is the audit record written with every balance mutation.
type LedgerEntry struct {
	ID            string
	UserID        string
	Delta         int
	BalanceAfter  int
	ReferenceType ReferenceType
	ReferenceID   string
	Description   string
	CreatedAt     time.Time
}
