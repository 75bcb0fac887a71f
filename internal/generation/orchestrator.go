// Package generation runs batch image generation against a prepaid credit
// reservation and settles the reservation once the batch is over.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"inviteai/internal/domain"
	"inviteai/internal/providers/image"
	"inviteai/internal/storage"
)

const (
	maxUnitErrorLength = 500
	lateUnitReason     = "job finalized before the unit finished"
)

type modelResolver interface {
	ResolveKind(id string, kind domain.ModelKind) (domain.ModelDescriptor, error)
}

type providerSource interface {
	For(model domain.ModelDescriptor) (image.Provider, error)
}

// BatchRequest describes one batch. The job row must already exist.
type BatchRequest struct {
	JobID     string
	UserID    string
	ImageURL  string
	Style     string
	Role      string
	ModelID   string
	BatchSize int
}

// UnitResult is the outcome of one unit. URL is durable when Err is nil.
type UnitResult struct {
	Index  int
	UnitID string
	URL    string
	Err    error
}

// BatchResult aggregates unit outcomes. Cost is informational.
type BatchResult struct {
	Model     domain.ModelDescriptor
	Units     []UnitResult
	Completed int
	Failed    int
	Cost      float64
}

// URLs returns durable URLs in unit order.
func (r *BatchResult) URLs() []string {
	out := make([]string, 0, r.Completed)
	for _, u := range r.Units {
		if u.Err == nil && u.URL != "" {
			out = append(out, u.URL)
		}
	}
	return out
}

// UnitCallback fires as soon as a unit has a durable URL. With parallelism
// above one, calls can arrive out of index order.
type UnitCallback func(index int, unitID, url string)

// Orchestrator generates the units of a batch. It records every unit outcome
// on the job but never finalizes the job.
type Orchestrator struct {
	models      modelResolver
	providers   providerSource
	uploader    storage.Uploader
	jobs        domain.JobRepository
	units       domain.UnitRepository
	logger      zerolog.Logger
	parallelism int
	limiter     *rate.Limiter
	newID       func() string
}

type OrchestratorOptions struct {
	Parallelism int
	// RatePerSecond paces provider calls across all batches. Zero disables pacing.
	RatePerSecond float64
	Logger        zerolog.Logger
}

func NewOrchestrator(models modelResolver, providers providerSource, uploader storage.Uploader, jobs domain.JobRepository, units domain.UnitRepository, opts OrchestratorOptions) *Orchestrator {
	o := &Orchestrator{
		models:      models,
		providers:   providers,
		uploader:    uploader,
		jobs:        jobs,
		units:       units,
		logger:      opts.Logger.With().Str("component", "orchestrator").Logger(),
		parallelism: max(1, opts.Parallelism),
		newID:       func() string { return uuid.NewString() },
	}
	if opts.RatePerSecond > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(1, o.parallelism))
	}
	return o
}

// Run generates req.BatchSize units. Provider work runs on a context detached
// from ctx cancellation so a dropped client does not abort paid calls.
func (o *Orchestrator) Run(ctx context.Context, req BatchRequest, onUnit UnitCallback) (*BatchResult, error) {
	model, err := o.models.ResolveKind(req.ModelID, domain.ModelKindImage)
	if err != nil {
		return nil, err
	}
	provider, err := o.providers.For(model)
	if err != nil {
		return nil, err
	}
	if req.BatchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be positive", domain.ErrInvalidRequest)
	}

	work := context.WithoutCancel(ctx)
	if err := o.jobs.MarkProcessing(work, req.JobID); err != nil {
		return nil, fmt.Errorf("mark job processing: %w", err)
	}

	log := o.logger.With().Str("job_id", req.JobID).Str("model", model.ID).Int("batch_size", req.BatchSize).Logger()
	log.Info().Int("parallelism", o.parallelism).Msg("batch started")
	started := time.Now()

	result := &BatchResult{
		Model: model,
		Units: make([]UnitResult, req.BatchSize),
		Cost:  float64(req.BatchSize) * model.CostPerUnit,
	}

	var cbMu sync.Mutex
	notify := func(r UnitResult) {
		if onUnit == nil || r.Err != nil {
			return
		}
		cbMu.Lock()
		defer cbMu.Unlock()
		onUnit(r.Index, r.UnitID, r.URL)
	}

	if o.parallelism <= 1 {
		for i := 0; i < req.BatchSize; i++ {
			result.Units[i] = o.runUnit(work, req, model, provider, i)
			notify(result.Units[i])
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.parallelism)
		for i := 0; i < req.BatchSize; i++ {
			g.Go(func() error {
				result.Units[i] = o.runUnit(work, req, model, provider, i)
				notify(result.Units[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, u := range result.Units {
		if u.Err == nil {
			result.Completed++
		} else {
			result.Failed++
		}
	}
	log.Info().
		Int("completed", result.Completed).
		Int("failed", result.Failed).
		Float64("cost", result.Cost).
		Dur("elapsed", time.Since(started)).
		Msg("batch finished")
	return result, nil
}

func (o *Orchestrator) runUnit(ctx context.Context, req BatchRequest, model domain.ModelDescriptor, provider image.Provider, index int) UnitResult {
	res := UnitResult{Index: index, UnitID: o.newID()}
	log := o.logger.With().Str("job_id", req.JobID).Str("unit_id", res.UnitID).Int("index", index).Logger()

	unit := &domain.Unit{
		ID:          res.UnitID,
		JobID:       req.JobID,
		UserID:      req.UserID,
		Index:       index,
		OriginalURL: req.ImageURL,
		Style:       req.Style,
		Role:        req.Role,
		ModelID:     model.ID,
	}
	if err := o.units.Create(ctx, unit); err != nil {
		res.Err = fmt.Errorf("create unit: %w", err)
		log.Error().Err(err).Msg("unit not persisted")
		o.record(ctx, log, req.JobID, false)
		return res
	}

	url, err := o.generate(ctx, req, model, provider, index)
	if err != nil {
		res.Err = err
		log.Warn().Err(err).Msg("unit failed")
		if ferr := o.units.Fail(ctx, unit.ID, truncate(err.Error(), maxUnitErrorLength)); ferr != nil {
			log.Error().Err(ferr).Msg("mark unit failed")
		}
		o.record(ctx, log, req.JobID, false)
		return res
	}

	if err := o.units.Complete(ctx, unit.ID, []string{url}); err != nil {
		res.Err = fmt.Errorf("complete unit: %w", err)
		log.Error().Err(err).Msg("mark unit completed")
		o.record(ctx, log, req.JobID, false)
		return res
	}
	if err := o.record(ctx, log, req.JobID, true); errors.Is(err, domain.ErrAlreadyFinalized) {
		// The job was settled without this unit, so it is neither billed nor delivered.
		res.Err = err
		log.Warn().Msg("unit finished after its job was finalized")
		if ferr := o.units.Fail(ctx, unit.ID, lateUnitReason); ferr != nil {
			log.Error().Err(ferr).Msg("mark late unit failed")
		}
		return res
	}
	res.URL = url
	log.Debug().Str("url", url).Msg("unit completed")
	return res
}

// generate calls the provider and turns its output into a durable URL.
func (o *Orchestrator) generate(ctx context.Context, req BatchRequest, model domain.ModelDescriptor, provider image.Provider, index int) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	out, err := callProvider(ctx, provider, image.Request{
		Prompt:         image.BuildPrompt(req.Style, req.Role, model.FacePreservationQuality, index, req.BatchSize),
		NegativePrompt: image.DefaultNegativePrompt,
		ImageURL:       req.ImageURL,
		Model:          model,
		VariationIndex: index,
		Seed:           image.Seed(req.JobID, index),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}

	prefix := "generations/" + req.JobID
	var obj storage.Object
	switch out.Encoding {
	case domain.EncodingInline:
		obj, err = o.uploader.Upload(ctx, out.Data, out.MIME, prefix)
	case domain.EncodingURL:
		if out.URL == "" {
			return "", fmt.Errorf("%w: empty result url", domain.ErrProviderFailure)
		}
		obj, err = o.uploader.CopyFromURL(ctx, out.URL, prefix)
	default:
		return "", fmt.Errorf("%w: unknown output encoding %q", domain.ErrProviderFailure, out.Encoding)
	}
	if err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	return obj.URL, nil
}

// callProvider converts provider panics into unit failures.
func callProvider(ctx context.Context, p image.Provider, req image.Request) (out *image.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	out, err = p.GenerateImage(ctx, req)
	if err == nil && out == nil {
		err = errors.New("provider returned no output")
	}
	return out, err
}

func (o *Orchestrator) record(ctx context.Context, log zerolog.Logger, jobID string, success bool) error {
	err := o.jobs.RecordUnitResult(ctx, jobID, success)
	if err != nil && !errors.Is(err, domain.ErrAlreadyFinalized) {
		log.Error().Err(err).Bool("success", success).Msg("record unit result")
	}
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
