package memory

import (
	"context"
	"sort"
	"time"

	"inviteai/internal/domain"
)

// JobRepo implements domain.JobRepository.
type JobRepo struct{ s *Store }

func (r *JobRepo) Create(_ context.Context, job *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.jobs[job.ID]; exists {
		return domain.ErrInvalidRequest
	}
	job.Status = domain.JobStatusPending
	job.CreditsUsed, job.CompletedImages, job.FailedImages = 0, 0, 0
	job.CreatedAt = r.s.now()
	job.UpdatedAt = job.CreatedAt
	job.CompletedAt = nil
	cp := *job
	r.s.jobs[job.ID] = &cp
	return nil
}

func (r *JobRepo) Get(_ context.Context, jobID, userID string) (*domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[jobID]
	if !ok || j.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *JobRepo) ListByUser(_ context.Context, userID string, limit int) ([]domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Job
	for _, j := range r.s.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return truncate(out, limit), nil
}

func (r *JobRepo) MarkProcessing(_ context.Context, jobID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if j, ok := r.s.jobs[jobID]; ok && j.Status == domain.JobStatusPending {
		j.Status = domain.JobStatusProcessing
		j.UpdatedAt = r.s.now()
	}
	return nil
}

func (r *JobRepo) RecordUnitResult(_ context.Context, jobID string, success bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[jobID]
	if !ok || !j.Status.IsOpen() {
		return domain.ErrAlreadyFinalized
	}
	if success {
		j.CompletedImages++
	} else {
		j.FailedImages++
	}
	j.UpdatedAt = r.s.now()
	return nil
}

func (r *JobRepo) Finalize(_ context.Context, jobID, userID string, rule domain.FinalizeRule) (*domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[jobID]
	if !ok || j.UserID != userID || !j.Status.IsOpen() || !rule.Allows(*j) {
		return nil, domain.ErrAlreadyFinalized
	}
	if missing := j.CreditsReserved - j.Reported(); missing > 0 {
		j.FailedImages += missing
	}
	j.Status = domain.ClassifyOutcome(j.CompletedImages, j.FailedImages)
	j.CreditsUsed = min(j.CompletedImages, j.CreditsReserved)
	now := r.s.now()
	j.UpdatedAt = now
	j.CompletedAt = &now
	cp := *j
	return &cp, nil
}

func (r *JobRepo) ListStaleOpen(_ context.Context, olderThan time.Time, limit int) ([]domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Job
	for _, j := range r.s.jobs {
		if j.Status.IsOpen() && j.UpdatedAt.Before(olderThan) {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].UpdatedAt.Before(out[k].UpdatedAt) })
	return truncate(out, limit), nil
}

// UnitRepo implements domain.UnitRepository.
type UnitRepo struct{ s *Store }

func (r *UnitRepo) Create(_ context.Context, unit *domain.Unit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	unit.Status = domain.UnitStatusProcessing
	unit.GeneratedURLs = []string{}
	unit.CreatedAt = r.s.now()
	cp := *unit
	r.s.units[unit.ID] = &cp
	return nil
}

func (r *UnitRepo) Complete(_ context.Context, unitID string, urls []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[unitID]
	if !ok {
		return domain.ErrNotFound
	}
	now := r.s.now()
	u.Status = domain.UnitStatusCompleted
	u.GeneratedURLs = append([]string(nil), urls...)
	u.Error = ""
	u.CompletedAt = &now
	return nil
}

func (r *UnitRepo) Fail(_ context.Context, unitID, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[unitID]
	if !ok {
		return domain.ErrNotFound
	}
	now := r.s.now()
	u.Status = domain.UnitStatusFailed
	u.GeneratedURLs = []string{}
	u.SelectedURL = nil
	u.Error = reason
	u.CompletedAt = &now
	return nil
}

func (r *UnitRepo) Get(_ context.Context, unitID, userID string) (*domain.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[unitID]
	if !ok || u.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return copyUnit(u), nil
}

func (r *UnitRepo) ListByJob(_ context.Context, jobID, userID string) ([]domain.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Unit
	for _, u := range r.s.units {
		if u.JobID == jobID && u.UserID == userID {
			out = append(out, *copyUnit(u))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Index < out[k].Index })
	return out, nil
}

func (r *UnitRepo) Update(_ context.Context, unitID, userID string, patch domain.UnitPatch) (*domain.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.units[unitID]
	if !ok || u.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if patch.SelectedURL != nil {
		v := *patch.SelectedURL
		u.SelectedURL = &v
	}
	if patch.IsFavorited != nil {
		u.IsFavorited = *patch.IsFavorited
	}
	return copyUnit(u), nil
}

func copyUnit(u *domain.Unit) *domain.Unit {
	cp := *u
	cp.GeneratedURLs = append([]string{}, u.GeneratedURLs...)
	return &cp
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

var (
	_ domain.JobRepository  = (*JobRepo)(nil)
	_ domain.UnitRepository = (*UnitRepo)(nil)
)
