package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"inviteai/internal/bootstrap"
	"inviteai/internal/infra"
)

// sweepBatch bounds how many records one pass touches per kind.
const sweepBatch = 50

type sweeper struct {
	container *bootstrap.Container
	logger    infra.Logger
	staleAge  time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to initialise services")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("worker: background tasks did not drain")
		}
	}()

	w := &sweeper{container: container, logger: logger, staleAge: cfg.StaleAfter}
	if err := w.Run(ctx, cfg.WorkerInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: stopped with error")
		return
	}
	logger.Info().Msg("worker: stopped")
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *sweeper) Run(ctx context.Context, interval time.Duration) error {
	w.logger.Info().Dur("interval", interval).Dur("stale_after", w.staleAge).Msg("worker: started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		w.sweep(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *sweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()
	cutoff := now.Add(-w.staleAge)

	// QUEUED themes older than a minute were left behind by an API process.
	if n, err := w.container.Themes.ResumeQueued(ctx, now.Add(-time.Minute), sweepBatch); err != nil {
		w.logger.Error().Err(err).Msg("worker: resume queued themes failed")
	} else if n > 0 {
		w.logger.Info().Int("count", n).Msg("worker: resumed queued themes")
	}

	if n, err := w.container.Themes.FailStale(ctx, cutoff, sweepBatch); err != nil {
		w.logger.Error().Err(err).Msg("worker: fail stale themes failed")
	} else if n > 0 {
		w.logger.Warn().Int("count", n).Msg("worker: failed stale themes")
	}

	if n, err := w.container.Generations.SettleStale(ctx, cutoff, sweepBatch); err != nil {
		w.logger.Error().Err(err).Msg("worker: settle stale jobs failed")
	} else if n > 0 {
		w.logger.Warn().Int("count", n).Msg("worker: settled stale jobs")
	}
}
