package memory

import (
	"context"

	"github.com/google/uuid"

	"inviteai/internal/domain"
)

// CreditRepo implements domain.CreditRepository.
type CreditRepo struct{ s *Store }

func (r *CreditRepo) Debit(_ context.Context, userID string, amount int, ref domain.CreditRef) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.CreditBalance < amount {
		return 0, domain.ErrInsufficientCredits
	}
	return r.s.applyLocked(u, -amount, ref), nil
}

func (r *CreditRepo) Credit(_ context.Context, userID string, amount int, ref domain.CreditRef) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return r.s.applyLocked(u, amount, ref), nil
}

func (r *CreditRepo) Balance(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return u.CreditBalance, nil
}

func (r *CreditRepo) ListEntries(_ context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range r.s.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	// Entries are appended in order, so reverse insertion order is newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) applyLocked(u *domain.User, delta int, ref domain.CreditRef) int {
	now := s.now()
	u.CreditBalance += delta
	u.UpdatedAt = now
	s.ledger = append(s.ledger, domain.LedgerEntry{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		Delta:         delta,
		BalanceAfter:  u.CreditBalance,
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		Description:   ref.Description,
		CreatedAt:     now,
	})
	return u.CreditBalance
}

// Entries returns a copy of every ledger entry in insertion order.
func (s *Store) Entries() []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LedgerEntry(nil), s.ledger...)
}

var _ domain.CreditRepository = (*CreditRepo)(nil)
