package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteai/internal/domain"
)

func TestDebitNeverGoesNegative(t *testing.T) {
	store := NewStore()
	store.SeedUser("u1", "u1@example.com", 5)
	credits := store.Credits()

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := credits.Debit(context.Background(), "u1", 1, domain.CreditRef{Type: domain.RefGenerationJob, ID: "j"}); err == nil {
				ok.Add(1)
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
			}
		}()
	}
	wg.Wait()

	balance, err := credits.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
	assert.Equal(t, int32(5), ok.Load())
	assert.Len(t, store.Entries(), 5)
}

func TestListEntriesNewestFirst(t *testing.T) {
	store := NewStore()
	store.SeedUser("u1", "u1@example.com", 10)
	credits := store.Credits()
	ctx := context.Background()

	_, err := credits.Debit(ctx, "u1", 4, domain.CreditRef{Type: domain.RefGenerationJob, ID: "j1"})
	require.NoError(t, err)
	_, err = credits.Credit(ctx, "u1", 1, domain.CreditRef{Type: domain.RefGenerationRelease, ID: "j1"})
	require.NoError(t, err)

	entries, err := credits.ListEntries(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.RefGenerationRelease, entries[0].ReferenceType)
	assert.Equal(t, 7, entries[0].BalanceAfter)
	assert.Equal(t, -4, entries[1].Delta)
}

func TestFinalizeHasSingleWinner(t *testing.T) {
	store := NewStore()
	jobs := store.Jobs()
	ctx := context.Background()
	require.NoError(t, jobs.Create(ctx, &domain.Job{ID: "j1", UserID: "u1", CreditsReserved: 4}))
	require.NoError(t, jobs.RecordUnitResult(ctx, "j1", true))

	var wg sync.WaitGroup
	var winners, losers atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := jobs.Finalize(ctx, "j1", "u1", domain.FinalizeRule{Force: true})
			switch err {
			case nil:
				winners.Add(1)
			case domain.ErrAlreadyFinalized:
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(7), losers.Load())

	job, err := jobs.Get(ctx, "j1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPartial, job.Status)
	assert.Equal(t, 1, job.CreditsUsed)
	assert.Equal(t, 3, job.FailedImages)
	assert.Equal(t, 3, job.Unused())
}

func TestFinalizeWaitsForActiveJob(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	now := base
	store.SetClock(func() time.Time { return now })
	jobs := store.Jobs()
	ctx := context.Background()
	require.NoError(t, jobs.Create(ctx, &domain.Job{ID: "j1", UserID: "u1", CreditsReserved: 3}))
	require.NoError(t, jobs.MarkProcessing(ctx, "j1"))

	now = base.Add(20 * time.Minute)
	require.NoError(t, jobs.RecordUnitResult(ctx, "j1", true))

	idle := now.Add(-15 * time.Minute)
	_, err := jobs.Finalize(ctx, "j1", "u1", domain.FinalizeRule{IdleSince: idle})
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	stale, err := jobs.ListStaleOpen(ctx, idle, 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	now = base.Add(40 * time.Minute)
	idle = now.Add(-15 * time.Minute)
	job, err := jobs.Finalize(ctx, "j1", "u1", domain.FinalizeRule{IdleSince: idle})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPartial, job.Status)
	assert.Equal(t, 1, job.CompletedImages)
	assert.Equal(t, 2, job.FailedImages)

	assert.ErrorIs(t, jobs.RecordUnitResult(ctx, "j1", true), domain.ErrAlreadyFinalized)
	job, err = jobs.Get(ctx, "j1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, job.CompletedImages)
	assert.Equal(t, 1, job.CreditsUsed)
}

func TestFinalizeWithoutReportsIsFailed(t *testing.T) {
	store := NewStore()
	jobs := store.Jobs()
	ctx := context.Background()
	require.NoError(t, jobs.Create(ctx, &domain.Job{ID: "j1", UserID: "u1", CreditsReserved: 2}))

	job, err := jobs.Finalize(ctx, "j1", "u1", domain.FinalizeRule{Force: true})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, 0, job.CreditsUsed)
	assert.Equal(t, 2, job.FailedImages)
}

func TestUnitFailDropsGeneratedURLs(t *testing.T) {
	store := NewStore()
	units := store.Units()
	ctx := context.Background()
	require.NoError(t, units.Create(ctx, &domain.Unit{ID: "n1", JobID: "j1", UserID: "u1"}))
	require.NoError(t, units.Complete(ctx, "n1", []string{"https://cdn.test/a.png"}))
	require.NoError(t, units.Fail(ctx, "n1", "job finalized before the unit finished"))

	unit, err := units.Get(ctx, "n1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UnitStatusFailed, unit.Status)
	assert.Empty(t, unit.GeneratedURLs)
}

func TestFinalizeRejectsOtherUser(t *testing.T) {
	store := NewStore()
	jobs := store.Jobs()
	ctx := context.Background()
	require.NoError(t, jobs.Create(ctx, &domain.Job{ID: "j1", UserID: "u1", CreditsReserved: 2}))

	_, err := jobs.Finalize(ctx, "j1", "intruder", domain.FinalizeRule{Force: true})
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestMarkProcessingOnlyFromPending(t *testing.T) {
	store := NewStore()
	jobs := store.Jobs()
	ctx := context.Background()
	require.NoError(t, jobs.Create(ctx, &domain.Job{ID: "j1", UserID: "u1", CreditsReserved: 1}))
	require.NoError(t, jobs.MarkProcessing(ctx, "j1"))
	require.NoError(t, jobs.RecordUnitResult(ctx, "j1", true))
	_, err := jobs.Finalize(ctx, "j1", "u1", domain.FinalizeRule{})
	require.NoError(t, err)
	require.NoError(t, jobs.MarkProcessing(ctx, "j1"))

	job, err := jobs.Get(ctx, "j1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
}

func TestThemeClaimBumpsUpdatedAt(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	now := base
	store.SetClock(func() time.Time { return now })
	themes := store.Themes()
	ctx := context.Background()

	require.NoError(t, themes.Create(ctx, &domain.ThemeRecord{ID: "t1", UserID: "u1", Status: domain.ThemeStatusQueued}))
	now = base.Add(10 * time.Minute)

	claimed, err := themes.ListByStatus(ctx, domain.ThemeStatusQueued, base.Add(5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	again, err := themes.ListByStatus(ctx, domain.ThemeStatusQueued, base.Add(5*time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestThemeFinishRequiresExpectedStatus(t *testing.T) {
	store := NewStore()
	themes := store.Themes()
	ctx := context.Background()
	require.NoError(t, themes.Create(ctx, &domain.ThemeRecord{ID: "t1", UserID: "u1", Status: domain.ThemeStatusQueued}))

	ok, err := themes.Finish(ctx, "t1", domain.ThemeStatusProcessing, domain.ThemeResult{Status: domain.ThemeStatusCompleted})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = themes.Transition(ctx, "t1", domain.ThemeStatusQueued, domain.ThemeStatusProcessing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = themes.Finish(ctx, "t1", domain.ThemeStatusProcessing, domain.ThemeResult{Status: domain.ThemeStatusCompleted, CreditsUsed: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := themes.Get(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusCompleted, rec.Status)
	assert.Equal(t, 1, rec.CreditsUsed)
}

func TestUnitUpdatePatchesOnlySetFields(t *testing.T) {
	store := NewStore()
	units := store.Units()
	ctx := context.Background()
	require.NoError(t, units.Create(ctx, &domain.Unit{ID: "n1", JobID: "j1", UserID: "u1", Index: 0}))
	require.NoError(t, units.Complete(ctx, "n1", []string{"https://cdn.test/a.png"}))

	fav := true
	unit, err := units.Update(ctx, "n1", "u1", domain.UnitPatch{IsFavorited: &fav})
	require.NoError(t, err)
	assert.True(t, unit.IsFavorited)
	assert.Nil(t, unit.SelectedURL)

	_, err = units.Update(ctx, "n1", "u2", domain.UnitPatch{IsFavorited: &fav})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
