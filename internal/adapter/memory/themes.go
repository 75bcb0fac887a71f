package memory

import (
	"context"
	"sort"
	"time"

	"inviteai/internal/domain"
)

// ThemeRepo implements domain.ThemeRepository.
type ThemeRepo struct{ s *Store }

func (r *ThemeRepo) Create(_ context.Context, rec *domain.ThemeRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	cp := *rec
	r.s.themes[rec.ID] = &cp
	return nil
}

func (r *ThemeRepo) Get(_ context.Context, id, userID string) (*domain.ThemeRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.themes[id]
	if !ok || rec.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *ThemeRepo) ListByUser(_ context.Context, userID string, limit int) ([]domain.ThemeRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ThemeRecord
	for _, rec := range r.s.themes {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return truncate(out, limit), nil
}

// ListByStatus claims stale records by bumping UpdatedAt, like the SQL query.
func (r *ThemeRepo) ListByStatus(_ context.Context, status domain.ThemeStatus, olderThan time.Time, limit int) ([]domain.ThemeRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*domain.ThemeRecord
	for _, rec := range r.s.themes {
		if rec.Status == status && rec.UpdatedAt.Before(olderThan) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, k int) bool { return matched[i].CreatedAt.Before(matched[k].CreatedAt) })
	matched = truncate(matched, limit)
	now := r.s.now()
	out := make([]domain.ThemeRecord, 0, len(matched))
	for _, rec := range matched {
		rec.UpdatedAt = now
		out = append(out, *rec)
	}
	return out, nil
}

func (r *ThemeRepo) Transition(_ context.Context, id string, from, to domain.ThemeStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.themes[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = to
	rec.UpdatedAt = r.s.now()
	return true, nil
}

func (r *ThemeRepo) Finish(_ context.Context, id string, from domain.ThemeStatus, res domain.ThemeResult) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.themes[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = res.Status
	rec.Theme = res.Theme
	rec.FailReason = res.FailReason
	rec.CreditsUsed = res.CreditsUsed
	rec.InputTokens = res.InputTokens
	rec.OutputTokens = res.OutputTokens
	rec.Cost = res.Cost
	rec.DurationMS = res.DurationMS
	rec.UpdatedAt = r.s.now()
	return true, nil
}

var _ domain.ThemeRepository = (*ThemeRepo)(nil)
