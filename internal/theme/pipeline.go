package theme

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inviteai/internal/catalog"
	"inviteai/internal/domain"
	"inviteai/internal/domain/jsoncfg"
	"inviteai/internal/ledger"
	"inviteai/internal/providers/llm"
	"inviteai/internal/theme/safelist"
)

const (
	maxReportedViolations = 20
	maxFailReasonLength   = 500
)

type modelResolver interface {
	ResolveKind(id string, kind domain.ModelKind) (domain.ModelDescriptor, error)
}

type generatorSource interface {
	For(model domain.ModelDescriptor) (llm.Generator, error)
}

// Pipeline turns a QUEUED theme record into a terminal one. Credits reserved
// for the record are refunded on every failure except a safelist failure.
type Pipeline struct {
	models     modelResolver
	generators generatorSource
	ledger     *ledger.Ledger
	repo       domain.ThemeRepository
	safelist   *safelist.Safelist
	logger     zerolog.Logger
	now        func() time.Time
}

func NewPipeline(models modelResolver, generators generatorSource, l *ledger.Ledger, repo domain.ThemeRepository, sl *safelist.Safelist, logger zerolog.Logger) *Pipeline {
	if sl == nil {
		sl = safelist.Default()
	}
	return &Pipeline{
		models:     models,
		generators: generators,
		ledger:     l,
		repo:       repo,
		safelist:   sl,
		logger:     logger.With().Str("component", "theme_pipeline").Logger(),
		now:        time.Now,
	}
}

// Process claims rec by moving it from QUEUED to PROCESSING. When another
// process already claimed it, the stored record is returned unchanged.
func (p *Pipeline) Process(ctx context.Context, rec *domain.ThemeRecord) (*domain.ThemeRecord, error) {
	claimed, err := p.repo.Transition(ctx, rec.ID, domain.ThemeStatusQueued, domain.ThemeStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("claim theme: %w", err)
	}
	if !claimed {
		p.logger.Debug().Str("theme_id", rec.ID).Msg("theme already claimed")
		return p.repo.Get(ctx, rec.ID, rec.UserID)
	}

	started := p.now()
	res := p.run(ctx, rec)
	elapsed := p.now().Sub(started).Milliseconds()
	res.DurationMS = &elapsed
	return p.finish(ctx, rec, res)
}

// run never returns an unfinished result; panics become FAILED.
func (p *Pipeline) run(ctx context.Context, rec *domain.ThemeRecord) (res domain.ThemeResult) {
	log := p.logger.With().Str("theme_id", rec.ID).Str("model", rec.ModelID).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("theme pipeline panicked")
			res = failed(fmt.Sprintf("internal error: %v", r))
		}
	}()

	var req jsoncfg.ThemeRequest
	if len(rec.Request) > 0 {
		if err := json.Unmarshal(rec.Request, &req); err != nil {
			return failed("unreadable request: " + err.Error())
		}
	}
	if req.Prompt == "" {
		req.Prompt = rec.Prompt
	}

	model, err := p.models.ResolveKind(rec.ModelID, domain.ModelKindText)
	if err != nil {
		return failed(err.Error())
	}
	gen, err := p.generators.For(model)
	if err != nil {
		return failed(err.Error())
	}

	resp, err := gen.GenerateJSON(ctx, llm.Request{
		Model:       model,
		System:      systemPrompt,
		Prompt:      BuildPrompt(req),
		SchemaName:  SchemaName,
		Schema:      Schema(),
		Temperature: 0.7,
	})
	if err != nil {
		log.Warn().Err(err).Msg("theme generation failed")
		return failed(fmt.Sprintf("%v: %v", domain.ErrProviderFailure, err))
	}
	usage := func(r domain.ThemeResult) domain.ThemeResult {
		in, out := resp.InputTokens, resp.OutputTokens
		cost := catalog.TokenCost(model, in, out)
		r.InputTokens, r.OutputTokens, r.Cost = &in, &out, &cost
		return r
	}

	doc, raw, err := p.decode(resp.Text)
	if err != nil {
		log.Warn().Err(err).Msg("theme failed structural validation")
		return usage(failed(err.Error()))
	}

	check := p.safelist.Check(doc)
	if !check.Valid {
		log.Warn().Strs("violations", check.Violations).Msg("theme failed safelist")
		reason := strings.Join(check.Violations[:min(len(check.Violations), maxReportedViolations)], "; ")
		return usage(domain.ThemeResult{
			Status:      domain.ThemeStatusSafelistFailed,
			Theme:       raw,
			FailReason:  &reason,
			CreditsUsed: rec.CreditsUsed,
		})
	}
	return usage(domain.ThemeResult{
		Status:      domain.ThemeStatusCompleted,
		Theme:       raw,
		CreditsUsed: rec.CreditsUsed,
	})
}

// decode parses model text, normalizes enum drift and validates structure.
// The returned raw JSON is the normalized document.
func (p *Pipeline) decode(text string) (*Document, json.RawMessage, error) {
	generic, err := llm.ParsePayload[any](text)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid json: %v", domain.ErrStructuralValidation, err)
	}
	raw, err := json.Marshal(Normalize(generic))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrStructuralValidation, err)
	}
	doc, err := Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return doc, raw, nil
}

// finish writes res if rec is still PROCESSING. Only the writer that wins
// that compare-and-swap refunds, so a record is refunded at most once.
func (p *Pipeline) finish(ctx context.Context, rec *domain.ThemeRecord, res domain.ThemeResult) (*domain.ThemeRecord, error) {
	ctx = context.WithoutCancel(ctx)
	if res.FailReason != nil {
		r := truncate(*res.FailReason, maxFailReasonLength)
		res.FailReason = &r
	}
	won, err := p.repo.Finish(ctx, rec.ID, domain.ThemeStatusProcessing, res)
	if err != nil {
		return nil, fmt.Errorf("finish theme: %w", err)
	}
	if !won {
		p.logger.Warn().Str("theme_id", rec.ID).Str("status", string(res.Status)).Msg("theme finished elsewhere, result dropped")
		return p.repo.Get(ctx, rec.ID, rec.UserID)
	}
	if res.Status == domain.ThemeStatusFailed {
		p.refund(ctx, rec, reasonOf(res))
	}
	p.logger.Info().Str("theme_id", rec.ID).Str("status", string(res.Status)).Msg("theme finished")
	return p.repo.Get(ctx, rec.ID, rec.UserID)
}

func (p *Pipeline) refund(ctx context.Context, rec *domain.ThemeRecord, reason string) {
	if rec.CreditsUsed <= 0 {
		return
	}
	err := p.ledger.Refund(ctx, rec.UserID, rec.CreditsUsed, domain.CreditRef{
		Type:        domain.RefThemeRefund,
		ID:          rec.ID,
		Description: truncate(reason, 200),
	})
	if err != nil {
		p.logger.Error().Err(err).Str("theme_id", rec.ID).Str("user_id", rec.UserID).Int("amount", rec.CreditsUsed).Msg("theme refund failed")
	}
}

func failed(reason string) domain.ThemeResult {
	return domain.ThemeResult{Status: domain.ThemeStatusFailed, FailReason: &reason}
}

func reasonOf(res domain.ThemeResult) string {
	if res.FailReason == nil {
		return ""
	}
	return *res.FailReason
}

// IsRefunded reports whether a terminal status returns the reserved credits.
func IsRefunded(status domain.ThemeStatus) bool {
	return status == domain.ThemeStatusFailed
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

