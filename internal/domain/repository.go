package domain

import (
	"context"
	"time"
)

// UserRepository looks up balance owners.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Upsert(ctx context.Context, email, name string) (*User, error)
}

// CreditRepository mutates balances together with their audit entries. Debit
// must fail with ErrInsufficientCredits rather than let a balance go negative.
type CreditRepository interface {
	Debit(ctx context.Context, userID string, amount int, ref CreditRef) (int, error)
	Credit(ctx context.Context, userID string, amount int, ref CreditRef) (int, error)
	Balance(ctx context.Context, userID string) (int, error)
	ListEntries(ctx context.Context, userID string, limit int) ([]LedgerEntry, error)
}

// JobRepository persists generation jobs. Finalize is a compare-and-swap that
// returns ErrAlreadyFinalized when the job is no longer open or the rule does
// not allow closing it yet. RecordUnitResult returns ErrAlreadyFinalized for a
// job that is no longer open, and ListStaleOpen selects by last activity.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, jobID, userID string) (*Job, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Job, error)
	MarkProcessing(ctx context.Context, jobID string) error
	RecordUnitResult(ctx context.Context, jobID string, success bool) error
	Finalize(ctx context.Context, jobID, userID string, rule FinalizeRule) (*Job, error)
	ListStaleOpen(ctx context.Context, olderThan time.Time, limit int) ([]Job, error)
}

// UnitRepository persists individual generated images.
type UnitRepository interface {
	Create(ctx context.Context, unit *Unit) error
	Complete(ctx context.Context, unitID string, urls []string) error
	Fail(ctx context.Context, unitID, reason string) error
	Get(ctx context.Context, unitID, userID string) (*Unit, error)
	ListByJob(ctx context.Context, jobID, userID string) ([]Unit, error)
	Update(ctx context.Context, unitID, userID string, patch UnitPatch) (*Unit, error)
}

// ThemeRepository persists theme generation records. Transition and Finish
// only apply when the stored status equals from, and report whether they did.
type ThemeRepository interface {
	Create(ctx context.Context, rec *ThemeRecord) error
	Get(ctx context.Context, id, userID string) (*ThemeRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]ThemeRecord, error)
	ListByStatus(ctx context.Context, status ThemeStatus, olderThan time.Time, limit int) ([]ThemeRecord, error)
	Transition(ctx context.Context, id string, from, to ThemeStatus) (bool, error)
	Finish(ctx context.Context, id string, from ThemeStatus, res ThemeResult) (bool, error)
}
