package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inviteai/internal/domain"
	"inviteai/internal/infra"
	"inviteai/internal/sqlinline"

	"github.com/jackc/pgx/v5"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a PENDING job. job.ID must already be set.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGenerationJob,
		job.ID,
		job.UserID,
		job.ModelID,
		job.Style,
		job.Role,
		job.CreditsReserved,
	)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	job.Status = domain.JobStatusPending
	job.CreditsUsed, job.CompletedImages, job.FailedImages = 0, 0, 0
	return nil
}

// Get fetches a job owned by userID.
func (r *JobRepositoryPG) Get(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationJob, jobID, userID))
}

func (r *JobRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerationJobsByUser, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

// MarkProcessing moves a PENDING job to PROCESSING. Other states are left alone.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, jobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationJobProcessing, jobID)
	return err
}

// RecordUnitResult increments one counter in place. A job that is no longer
// open yields domain.ErrAlreadyFinalized.
func (r *JobRepositoryPG) RecordUnitResult(ctx context.Context, jobID string, success bool) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QRecordGenerationUnitResult, jobID, success)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinalized
	}
	return nil
}

// Finalize closes an open job when rule allows it. A job that is already
// terminal, not owned by userID, or still active yields
// domain.ErrAlreadyFinalized.
func (r *JobRepositoryPG) Finalize(ctx context.Context, jobID, userID string, rule domain.FinalizeRule) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QFinalizeGenerationJob, jobID, userID, rule.Force, rule.IdleSince))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrAlreadyFinalized
	}
	return job, err
}

func (r *JobRepositoryPG) ListStaleOpen(ctx context.Context, olderThan time.Time, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListStaleOpenGenerationJobs, olderThan, limit)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job    domain.Job
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.ModelID,
		&job.Style,
		&job.Role,
		&status,
		&job.CreditsReserved,
		&job.CreditsUsed,
		&job.CompletedImages,
		&job.FailedImages,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	defer rows.Close()
	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
