// Package ledger is the only writer of credit balances.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"inviteai/internal/domain"
)

// Ledger wraps a CreditRepository with amount validation and audit logging.
// It does not deduplicate calls; callers guard against repeats with a CAS on
// the record that owns the credits.
type Ledger struct {
	repo   domain.CreditRepository
	logger zerolog.Logger
}

func New(repo domain.CreditRepository, logger zerolog.Logger) *Ledger {
	return &Ledger{repo: repo, logger: logger.With().Str("component", "ledger").Logger()}
}

// Reserve deducts amount before paid work starts and returns the new balance.
func (l *Ledger) Reserve(ctx context.Context, userID string, amount int, ref domain.CreditRef) (int, error) {
	if err := validate(amount, ref); err != nil {
		return 0, err
	}
	balance, err := l.repo.Debit(ctx, userID, amount, ref)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			l.logger.Info().Str("user_id", userID).Int("amount", amount).Str("ref_type", string(ref.Type)).Str("ref_id", ref.ID).Msg("reserve rejected")
			return 0, err
		}
		return 0, fmt.Errorf("reserve credits: %w", err)
	}
	l.log(userID, -amount, balance, ref)
	return balance, nil
}

// Release returns credits a job reserved but did not use.
func (l *Ledger) Release(ctx context.Context, userID string, amount int, ref domain.CreditRef) error {
	_, err := l.credit(ctx, userID, amount, ref, "release")
	return err
}

// Refund returns credits for work that failed outright.
func (l *Ledger) Refund(ctx context.Context, userID string, amount int, ref domain.CreditRef) error {
	_, err := l.credit(ctx, userID, amount, ref, "refund")
	return err
}

// Grant tops up a balance, e.g. after a purchase or from the admin CLI.
func (l *Ledger) Grant(ctx context.Context, userID string, amount int, ref domain.CreditRef) (int, error) {
	return l.credit(ctx, userID, amount, ref, "grant")
}

func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	return l.repo.Balance(ctx, userID)
}

// History returns the newest ledger entries first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return l.repo.ListEntries(ctx, userID, limit)
}

func (l *Ledger) credit(ctx context.Context, userID string, amount int, ref domain.CreditRef, op string) (int, error) {
	if err := validate(amount, ref); err != nil {
		return 0, err
	}
	balance, err := l.repo.Credit(ctx, userID, amount, ref)
	if err != nil {
		l.logger.Error().Err(err).Str("user_id", userID).Int("amount", amount).Str("ref_type", string(ref.Type)).Str("ref_id", ref.ID).Msgf("%s failed", op)
		return 0, fmt.Errorf("%s credits: %w", op, err)
	}
	l.log(userID, amount, balance, ref)
	return balance, nil
}

func (l *Ledger) log(userID string, delta, balance int, ref domain.CreditRef) {
	l.logger.Info().
		Str("user_id", userID).
		Int("delta", delta).
		Int("balance", balance).
		Str("ref_type", string(ref.Type)).
		Str("ref_id", ref.ID).
		Msg("credits updated")
}

func validate(amount int, ref domain.CreditRef) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if ref.Type == "" || ref.ID == "" {
		return fmt.Errorf("%w: ledger reference type and id are required", domain.ErrInvalidRequest)
	}
	return nil
}
