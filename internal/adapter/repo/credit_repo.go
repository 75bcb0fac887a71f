package repo

import (
	"context"
	"fmt"

	"inviteai/internal/domain"
	"inviteai/internal/infra"
	"inviteai/internal/sqlinline"
)

// CreditRepositoryPG mutates users.credit_balance and credit_ledger in a
// single statement per call.
type CreditRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewCreditRepository(sql infra.SQLExecutor) *CreditRepositoryPG {
	return &CreditRepositoryPG{sql: sql}
}

// Debit deducts amount if the balance covers it and returns the new balance.
func (r *CreditRepositoryPG) Debit(ctx context.Context, userID string, amount int, ref domain.CreditRef) (int, error) {
	var balance int
	err := r.sql.QueryRow(ctx, sqlinline.QDebitCredits, userID, amount, string(ref.Type), ref.ID, ref.Description).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !infra.IsNoRows(err) {
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	// The guarded update matched nothing: either the user is missing or the
	// balance is too low.
	if _, err := r.Balance(ctx, userID); err != nil {
		return 0, err
	}
	return 0, domain.ErrInsufficientCredits
}

// Credit adds amount and returns the new balance.
func (r *CreditRepositoryPG) Credit(ctx context.Context, userID string, amount int, ref domain.CreditRef) (int, error) {
	var balance int
	err := r.sql.QueryRow(ctx, sqlinline.QCreditCredits, userID, amount, string(ref.Type), ref.ID, ref.Description).Scan(&balance)
	if err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("credit credits: %w", err)
	}
	return balance, nil
}

func (r *CreditRepositoryPG) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectCreditBalance, userID).Scan(&balance); err != nil {
		return 0, mapNoRows(err)
	}
	return balance, nil
}

// ListEntries returns the newest ledger entries first.
func (r *CreditRepositoryPG) ListEntries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListCreditLedger, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e       domain.LedgerEntry
			refType string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.BalanceAfter, &refType, &e.ReferenceID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ReferenceType = domain.ReferenceType(refType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ domain.CreditRepository = (*CreditRepositoryPG)(nil)
