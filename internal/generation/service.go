package generation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inviteai/internal/domain"
	"inviteai/internal/domain/jsoncfg"
	"inviteai/internal/ledger"
	"inviteai/internal/ratelimit"
)

// Settings are the request limits applied by Submit. StaleAfter is how long
// an open job must go without unit activity before Complete may close it
// with units unreported.
type Settings struct {
	RateLimit         int
	RateWindow        time.Duration
	DefaultBatchSize  int
	MaxBatchSize      int
	AllowedImageHosts []string
	StaleAfter        time.Duration
}

// Service owns the credit reservation of a batch: it reserves before any
// provider call and is the only caller of Finalize.
type Service struct {
	models       modelResolver
	ledger       *ledger.Ledger
	jobs         domain.JobRepository
	units        domain.UnitRepository
	orchestrator *Orchestrator
	limiter      ratelimit.Limiter
	settings     Settings
	logger       zerolog.Logger
	newID        func() string
	now          func() time.Time
}

func NewService(models modelResolver, l *ledger.Ledger, jobs domain.JobRepository, units domain.UnitRepository, orchestrator *Orchestrator, limiter ratelimit.Limiter, settings Settings, logger zerolog.Logger) *Service {
	if settings.StaleAfter <= 0 {
		settings.StaleAfter = 15 * time.Minute
	}
	return &Service{
		models:       models,
		ledger:       l,
		jobs:         jobs,
		units:        units,
		orchestrator: orchestrator,
		limiter:      limiter,
		settings:     settings,
		logger:       logger.With().Str("component", "generation").Logger(),
		newID:        func() string { return uuid.NewString() },
		now:          time.Now,
	}
}

// Submission is a reserved, persisted job that has not run yet.
type Submission struct {
	Job     *domain.Job
	Request jsoncfg.GenerationRequest
	Model   domain.ModelDescriptor
	Balance int
}

// Submit validates, rate limits, reserves batchSize credits and persists the
// job. Nothing is reserved when it returns an error.
func (s *Service) Submit(ctx context.Context, userID string, req jsoncfg.GenerationRequest) (*Submission, error) {
	req.Normalize(s.settings.DefaultBatchSize, s.settings.MaxBatchSize)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if !s.hostAllowed(req.ImageURL) {
		return nil, fmt.Errorf("%w: imageUrl host is not allowed", domain.ErrInvalidRequest)
	}
	if s.limiter != nil && !s.limiter.Allow("generation:"+userID, s.settings.RateLimit, s.settings.RateWindow) {
		return nil, domain.ErrRateLimited
	}
	model, err := s.models.ResolveKind(req.ModelID, domain.ModelKindImage)
	if err != nil {
		return nil, err
	}

	jobID := s.newID()
	amount := req.BatchSize
	balance, err := s.ledger.Reserve(ctx, userID, amount, domain.CreditRef{
		Type:        domain.RefGenerationJob,
		ID:          jobID,
		Description: fmt.Sprintf("%d x %s", req.BatchSize, model.ID),
	})
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:              jobID,
		UserID:          userID,
		ModelID:         model.ID,
		Style:           req.Style,
		Role:            req.Role,
		CreditsReserved: amount,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("job not persisted, refunding reservation")
		if rerr := s.ledger.Refund(context.WithoutCancel(ctx), userID, amount, domain.CreditRef{
			Type:        domain.RefGenerationRefund,
			ID:          jobID,
			Description: "job could not be created",
		}); rerr != nil {
			s.logger.Error().Err(rerr).Str("job_id", jobID).Int("amount", amount).Msg("refund after failed job create")
		}
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &Submission{Job: job, Request: req, Model: model, Balance: balance}, nil
}

// RunResult is the settled outcome of a submission.
type RunResult struct {
	Batch    *BatchResult
	Complete *CompleteResult
}

// Run generates the batch and completes the job. onEvent receives progress in
// the order units finish; it may be nil.
func (s *Service) Run(ctx context.Context, sub *Submission, onEvent func(Event)) (*RunResult, error) {
	emit := func(ev Event) {
		if onEvent != nil {
			onEvent(ev)
		}
	}
	req := sub.Request
	emit(StatusEvent(fmt.Sprintf("generating %d images with %s", req.BatchSize, sub.Model.ID)))

	var progress atomic.Int32
	batch, runErr := s.orchestrator.Run(ctx, BatchRequest{
		JobID:     sub.Job.ID,
		UserID:    sub.Job.UserID,
		ImageURL:  req.ImageURL,
		Style:     req.Style,
		Role:      req.Role,
		ModelID:   sub.Model.ID,
		BatchSize: req.BatchSize,
	}, func(index int, unitID, url string) {
		emit(ImageEvent(index, unitID, url, int(progress.Add(1)), req.BatchSize))
	})

	// Every unit has reported by now; a unit whose counter update was lost
	// is settled as failed.
	complete, err := s.complete(context.WithoutCancel(ctx), sub.Job.ID, sub.Job.UserID, domain.FinalizeRule{Force: true})
	if err != nil {
		emit(ErrorEvent("failed to settle generation"))
		return nil, err
	}
	if runErr != nil {
		s.logger.Error().Err(runErr).Str("job_id", sub.Job.ID).Msg("batch aborted before generating")
		emit(ErrorEvent("generation failed"))
		return &RunResult{Complete: complete}, runErr
	}
	emit(DoneEvent(sub.Job.ID, string(complete.Job.Status), batch.URLs(), complete.Balance))
	return &RunResult{Batch: batch, Complete: complete}, nil
}

// CompleteResult reports a finalize attempt. Settled is false when another
// caller already finalized the job, or the job is still running; no credits
// move in that case.
type CompleteResult struct {
	Job      *domain.Job
	Settled  bool
	Released int
	Balance  int
}

// Complete finalizes the job and returns the unused reservation. A job whose
// units have not all reported is only closed once it has been idle for
// Settings.StaleAfter; before that Complete returns domain.ErrJobInProgress.
// Only the caller that wins the finalize compare-and-swap moves credits, so
// concurrent calls return credits at most once.
func (s *Service) Complete(ctx context.Context, jobID, userID string) (*CompleteResult, error) {
	res, err := s.complete(ctx, jobID, userID, domain.FinalizeRule{IdleSince: s.now().Add(-s.settings.StaleAfter)})
	if err != nil {
		return nil, err
	}
	if !res.Settled && res.Job.Status.IsOpen() {
		return nil, domain.ErrJobInProgress
	}
	return res, nil
}

func (s *Service) complete(ctx context.Context, jobID, userID string, rule domain.FinalizeRule) (*CompleteResult, error) {
	job, err := s.jobs.Finalize(ctx, jobID, userID, rule)
	if errors.Is(err, domain.ErrAlreadyFinalized) {
		current, gerr := s.jobs.Get(ctx, jobID, userID)
		if gerr != nil {
			return nil, gerr
		}
		balance, berr := s.ledger.Balance(ctx, userID)
		if berr != nil {
			return nil, fmt.Errorf("read balance: %w", berr)
		}
		return &CompleteResult{Job: current, Balance: balance}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finalize job: %w", err)
	}

	res := &CompleteResult{Job: job, Settled: true}
	if unused := job.Unused(); unused > 0 {
		ref := domain.CreditRef{
			Type:        domain.RefGenerationRelease,
			ID:          jobID,
			Description: fmt.Sprintf("%d of %d images not generated", unused, job.CreditsReserved),
		}
		returnCredits := s.ledger.Release
		if job.Status == domain.JobStatusFailed {
			ref.Type, ref.Description = domain.RefGenerationRefund, "no images generated"
			returnCredits = s.ledger.Refund
		}
		if err := returnCredits(ctx, userID, unused, ref); err != nil {
			s.logger.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Int("amount", unused).Str("reference_type", string(ref.Type)).Msg("returning credits after finalize failed")
			return nil, err
		}
		res.Released = unused
	}
	// Credits have moved; a failed balance read only leaves Balance unset.
	if balance, err := s.ledger.Balance(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("read balance after finalize")
	} else {
		res.Balance = balance
	}
	s.logger.Info().
		Str("job_id", jobID).
		Str("status", string(job.Status)).
		Int("completed", job.CompletedImages).
		Int("failed", job.FailedImages).
		Int("released", res.Released).
		Msg("job finalized")
	return res, nil
}

// SettleStale completes open jobs with no unit activity since olderThan, e.g.
// after the process running them died. A job that reports a unit between the
// listing and the finalize is left open. It returns how many jobs this call
// settled.
func (s *Service) SettleStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	jobs, err := s.jobs.ListStaleOpen(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, j := range jobs {
		res, err := s.complete(ctx, j.ID, j.UserID, domain.FinalizeRule{IdleSince: olderThan})
		if err != nil {
			s.logger.Error().Err(err).Str("job_id", j.ID).Msg("settle stale job")
			continue
		}
		if res.Settled {
			settled++
		} else if res.Job.Status.IsOpen() {
			s.logger.Debug().Str("job_id", j.ID).Msg("stale job became active again")
		}
	}
	return settled, nil
}

// JobView is a job with its units.
type JobView struct {
	Job   *domain.Job
	Units []domain.Unit
}

func (s *Service) GetJob(ctx context.Context, userID, jobID string) (*JobView, error) {
	job, err := s.jobs.Get(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	units, err := s.units.ListByJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	return &JobView{Job: job, Units: units}, nil
}

func (s *Service) ListJobs(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.jobs.ListByUser(ctx, userID, limit)
}

func (s *Service) ListUnits(ctx context.Context, userID, jobID string) ([]domain.Unit, error) {
	if _, err := s.jobs.Get(ctx, jobID, userID); err != nil {
		return nil, err
	}
	return s.units.ListByJob(ctx, jobID, userID)
}

// UpdateUnit applies user edits. A selected URL must be one the unit produced.
func (s *Service) UpdateUnit(ctx context.Context, userID, unitID string, patch domain.UnitPatch) (*domain.Unit, error) {
	if patch.SelectedURL == nil && patch.IsFavorited == nil {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidRequest)
	}
	if patch.SelectedURL != nil {
		unit, err := s.units.Get(ctx, unitID, userID)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(unit.GeneratedURLs, *patch.SelectedURL) {
			return nil, fmt.Errorf("%w: selectedUrl is not a generated image of this unit", domain.ErrInvalidRequest)
		}
	}
	return s.units.Update(ctx, unitID, userID, patch)
}

func (s *Service) hostAllowed(raw string) bool {
	if len(s.settings.AllowedImageHosts) == 0 {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range s.settings.AllowedImageHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
