package theme

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inviteai/internal/domain"
	"inviteai/internal/domain/jsoncfg"
	"inviteai/internal/ledger"
	"inviteai/internal/ratelimit"
	"inviteai/internal/tasks"
	"inviteai/internal/theme/safelist"
)

// Settings are the request limits applied by Create.
type Settings struct {
	RateLimit  int
	RateWindow time.Duration
}

// Service accepts theme requests and serves their records.
type Service struct {
	models    modelResolver
	ledger    *ledger.Ledger
	repo      domain.ThemeRepository
	pipeline  *Pipeline
	scheduler tasks.Scheduler
	limiter   ratelimit.Limiter
	safelist  *safelist.Safelist
	settings  Settings
	logger    zerolog.Logger
	newID     func() string
}

func NewService(models modelResolver, l *ledger.Ledger, repo domain.ThemeRepository, pipeline *Pipeline, scheduler tasks.Scheduler, limiter ratelimit.Limiter, settings Settings, logger zerolog.Logger) *Service {
	if scheduler == nil {
		scheduler = tasks.Inline{}
	}
	return &Service{
		models:    models,
		ledger:    l,
		repo:      repo,
		pipeline:  pipeline,
		scheduler: scheduler,
		limiter:   limiter,
		safelist:  pipeline.safelist,
		settings:  settings,
		logger:    logger.With().Str("component", "theme").Logger(),
		newID:     func() string { return uuid.NewString() },
	}
}

// Create reserves credits for req and persists a QUEUED record. Background
// requests return the QUEUED record; foreground requests return the
// terminal one.
func (s *Service) Create(ctx context.Context, userID string, req jsoncfg.ThemeRequest) (*domain.ThemeRecord, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if s.limiter != nil && !s.limiter.Allow("theme:"+userID, s.settings.RateLimit, s.settings.RateWindow) {
		return nil, domain.ErrRateLimited
	}
	model, err := s.models.ResolveKind(req.ModelID, domain.ModelKindText)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	amount := model.CreditsPerUnit
	if _, err := s.ledger.Reserve(ctx, userID, amount, domain.CreditRef{
		Type:        domain.RefThemeGeneration,
		ID:          id,
		Description: "theme via " + model.ID,
	}); err != nil {
		return nil, err
	}

	rec := &domain.ThemeRecord{
		ID:          id,
		UserID:      userID,
		Prompt:      req.Prompt,
		ModelID:     model.ID,
		Status:      domain.ThemeStatusQueued,
		CreditsUsed: amount,
		Request:     jsoncfg.MustMarshal(req),
	}
	if req.InvitationID != "" {
		inv := req.InvitationID
		rec.InvitationID = &inv
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("theme_id", id).Msg("theme not persisted, refunding reservation")
		s.pipeline.refund(context.WithoutCancel(ctx), rec, "theme could not be created")
		return nil, fmt.Errorf("create theme: %w", err)
	}

	if !req.Background {
		return s.pipeline.Process(context.WithoutCancel(ctx), rec)
	}
	queued := *rec
	err = s.scheduler.Submit("theme:"+id, func(ctx context.Context) error {
		_, err := s.pipeline.Process(ctx, &queued)
		return err
	})
	if errors.Is(err, domain.ErrQueueFull) || errors.Is(err, tasks.ErrClosed) {
		s.logger.Warn().Err(err).Str("theme_id", id).Msg("theme left queued for the worker")
	} else if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns one record of userID, healed if the safelist now accepts it.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.ThemeRecord, error) {
	rec, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.heal(rec)
	return rec, nil
}

// List returns the newest records of userID. SAFELIST_FAILED records whose
// theme passes the current safelist are returned COMPLETED.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]domain.ThemeRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	recs, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		s.heal(&recs[i])
	}
	return recs, nil
}

// heal rewrites rec in place and persists the change through the scheduler.
func (s *Service) heal(rec *domain.ThemeRecord) {
	if rec.Status != domain.ThemeStatusSafelistFailed || len(rec.Theme) == 0 {
		return
	}
	if !s.safelist.Check(rec.Theme).Valid {
		return
	}
	rec.Status = domain.ThemeStatusCompleted
	rec.FailReason = nil
	res := domain.ThemeResult{
		Status:       domain.ThemeStatusCompleted,
		Theme:        rec.Theme,
		CreditsUsed:  rec.CreditsUsed,
		InputTokens:  rec.InputTokens,
		OutputTokens: rec.OutputTokens,
		Cost:         rec.Cost,
		DurationMS:   rec.DurationMS,
	}
	id := rec.ID
	err := s.scheduler.Submit("theme-heal:"+id, func(ctx context.Context) error {
		ok, err := s.repo.Finish(ctx, id, domain.ThemeStatusSafelistFailed, res)
		if err != nil {
			return err
		}
		if ok {
			s.logger.Info().Str("theme_id", id).Msg("theme passes safelist, marked completed")
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("theme_id", id).Msg("theme heal not scheduled")
	}
}

// ResumeQueued processes QUEUED records untouched since olderThan. It returns
// how many records this call moved to a terminal state.
func (s *Service) ResumeQueued(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	recs, err := s.repo.ListByStatus(ctx, domain.ThemeStatusQueued, olderThan, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for i := range recs {
		if ctx.Err() != nil {
			break
		}
		out, err := s.pipeline.Process(ctx, &recs[i])
		if err != nil {
			s.logger.Error().Err(err).Str("theme_id", recs[i].ID).Msg("resume queued theme")
			continue
		}
		if out.Status.IsTerminal() {
			done++
		}
	}
	return done, nil
}

// FailStale fails records stuck in PROCESSING since olderThan and refunds
// them. A record that finishes concurrently keeps its result.
func (s *Service) FailStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	recs, err := s.repo.ListByStatus(ctx, domain.ThemeStatusProcessing, olderThan, limit)
	if err != nil {
		return 0, err
	}
	failedCount := 0
	for i := range recs {
		rec := &recs[i]
		reason := "processing timed out"
		won, err := s.repo.Finish(ctx, rec.ID, domain.ThemeStatusProcessing, domain.ThemeResult{
			Status:     domain.ThemeStatusFailed,
			FailReason: &reason,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("theme_id", rec.ID).Msg("fail stale theme")
			continue
		}
		if !won {
			continue
		}
		s.pipeline.refund(ctx, rec, reason)
		failedCount++
	}
	return failedCount, nil
}
