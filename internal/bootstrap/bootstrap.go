// Package bootstrap assembles the services shared by the API and worker
// binaries from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"inviteai/internal/adapter/memory"
	"inviteai/internal/adapter/repo"
	"inviteai/internal/catalog"
	"inviteai/internal/domain"
	"inviteai/internal/generation"
	"inviteai/internal/infra"
	"inviteai/internal/infra/credentials"
	"inviteai/internal/ledger"
	"inviteai/internal/providers/genai"
	"inviteai/internal/providers/image"
	"inviteai/internal/providers/llm"
	"inviteai/internal/providers/qwen"
	"inviteai/internal/ratelimit"
	"inviteai/internal/storage"
	"inviteai/internal/tasks"
	"inviteai/internal/theme"
)

// Repositories are the persistence ports behind the services.
type Repositories struct {
	Users   domain.UserRepository
	Credits domain.CreditRepository
	Jobs    domain.JobRepository
	Units   domain.UnitRepository
	Themes  domain.ThemeRepository
}

// Container holds the wired services. Close releases pools and drains the
// task queue.
type Container struct {
	Config      *infra.Config
	Logger      zerolog.Logger
	Repos       Repositories
	Catalog     *catalog.Catalog
	Ledger      *ledger.Ledger
	Limiter     *ratelimit.Buckets
	Queue       *tasks.Queue
	Uploads     *storage.Service
	FileStore   *storage.FileStore
	Generations *generation.Service
	Themes      *theme.Service
	Credentials *credentials.Store
	Ping        func(ctx context.Context) error

	pool *pgxpool.Pool
}

// New wires every dependency named by cfg.
func New(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Catalog: catalog.New(), Limiter: ratelimit.New()}

	if err := c.openStore(ctx); err != nil {
		return nil, err
	}
	if err := c.openStorage(ctx); err != nil {
		c.closePool()
		return nil, err
	}

	images, texts, err := c.providers(ctx)
	if err != nil {
		c.closePool()
		return nil, err
	}

	c.Ledger = ledger.New(c.Repos.Credits, logger)
	c.Queue = tasks.NewQueue(cfg.TaskWorkers, cfg.TaskQueueSize, logger)

	orch := generation.NewOrchestrator(c.Catalog, images, c.Uploads, c.Repos.Jobs, c.Repos.Units, generation.OrchestratorOptions{
		Parallelism:   cfg.BatchParallelism,
		RatePerSecond: cfg.ProviderRatePerSec,
		Logger:        logger,
	})
	c.Generations = generation.NewService(c.Catalog, c.Ledger, c.Repos.Jobs, c.Repos.Units, orch, c.Limiter, generation.Settings{
		RateLimit:         cfg.GenerationRateLimit,
		RateWindow:        cfg.GenerationRateWindow,
		DefaultBatchSize:  cfg.BatchSizeDefault,
		MaxBatchSize:      cfg.BatchSizeMax,
		AllowedImageHosts: cfg.ImageSourceAllowlist,
		StaleAfter:        cfg.StaleAfter,
	}, logger)

	pipeline := theme.NewPipeline(c.Catalog, texts, c.Ledger, c.Repos.Themes, nil, logger)
	c.Themes = theme.NewService(c.Catalog, c.Ledger, c.Repos.Themes, pipeline, c.Queue, c.Limiter, theme.Settings{
		RateLimit:  cfg.ThemeRateLimit,
		RateWindow: cfg.ThemeRateWindow,
	}, logger)

	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	switch c.Config.StoreDriver {
	case "memory":
		store := memory.NewStore()
		if c.Config.DevUserID != "" {
			store.SeedUser(c.Config.DevUserID, "dev@localhost", c.Config.DevUserCredits)
			c.Logger.Info().Str("user_id", c.Config.DevUserID).Int("credits", c.Config.DevUserCredits).Msg("memory store seeded")
		}
		c.Repos = Repositories{
			Users:   store.Users(),
			Credits: store.Credits(),
			Jobs:    store.Jobs(),
			Units:   store.Units(),
			Themes:  store.Themes(),
		}
		c.Ping = func(context.Context) error { return nil }
		return nil
	default:
		pool, err := infra.NewDBPool(ctx, c.Config)
		if err != nil {
			return err
		}
		c.pool = pool
		runner := infra.NewSQLRunner(pool, c.Logger)
		c.Repos = Repositories{
			Users:   repo.NewUserRepository(runner),
			Credits: repo.NewCreditRepository(runner),
			Jobs:    repo.NewJobRepository(runner),
			Units:   repo.NewUnitRepository(runner),
			Themes:  repo.NewThemeRepository(runner),
		}
		c.Credentials = credentials.NewStore(runner)
		c.Ping = pool.Ping
		return nil
	}
}

func (c *Container) openStorage(ctx context.Context) error {
	cfg := c.Config
	var backend storage.Backend
	switch cfg.StorageDriver {
	case "minio":
		store, err := storage.NewMinIOStore(ctx, storage.MinIOOptions{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			return fmt.Errorf("minio storage: %w", err)
		}
		backend = store
	case "supabase":
		backend = storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket)
	default:
		store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return err
		}
		c.FileStore = store
		backend = store
	}
	c.Uploads = storage.NewService(backend, storage.Options{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     c.Logger,
	})
	c.Logger.Info().Str("driver", cfg.StorageDriver).Msg("upload storage ready")
	return nil
}

// providers builds the image and text registries. A vendor without a key
// falls back to the synthetic image renderer or the preset themes.
func (c *Container) providers(ctx context.Context) (*image.Registry, *llm.Registry, error) {
	cfg := c.Config
	log := c.Logger

	qwenKey, err := c.Credentials.Resolve(ctx, credentials.ProviderQwen, cfg.QwenAPIKey)
	if err != nil {
		return nil, nil, err
	}
	geminiKey, err := c.Credentials.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, err
	}
	openaiKey, err := c.Credentials.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
	if err != nil {
		return nil, nil, err
	}

	synthetic := image.NewSyntheticProvider()
	qwenProvider := image.NewQwenProvider(qwen.NewClient(qwen.Options{
		APIKey:  qwenKey,
		BaseURL: cfg.QwenBaseURL,
		Logger:  &log,
	}))
	geminiClient := genai.NewClient(genai.Options{
		APIKey:  geminiKey,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  &log,
	})
	geminiImages := image.NewGeminiProvider(geminiClient)

	images := image.NewRegistry().
		Register(domain.ProviderQwen, image.WithFallback(qwenProvider, qwenProvider, synthetic)).
		Register(domain.ProviderGemini, image.WithFallback(geminiImages, geminiImages, synthetic)).
		Register(domain.ProviderSynthetic, synthetic)

	static := theme.NewStaticGenerator()
	onFallback := func(provider string) func(string) {
		return func(reason string) {
			log.Warn().Str("provider", provider).Str("reason", reason).Msg("text model unavailable, answering with preset theme")
		}
	}
	openai := llm.NewOpenAIGenerator(llm.OpenAIOptions{
		APIKey:       openaiKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
	})
	geminiText := llm.NewGeminiGenerator(geminiClient)
	texts := llm.NewRegistry().
		Register(domain.ProviderOpenAI, llm.WithFallback(openai, openai, static, onFallback("openai"))).
		Register(domain.ProviderGemini, llm.WithFallback(geminiText, geminiText, static, onFallback("gemini")))

	log.Info().
		Bool("qwen", qwenProvider.HasCredentials()).
		Bool("gemini", geminiImages.HasCredentials()).
		Bool("openai", openai.HasCredentials()).
		Msg("provider credentials resolved")
	return images, texts, nil
}

// Close drains queued tasks until ctx expires and closes the database pool.
func (c *Container) Close(ctx context.Context) error {
	var err error
	if c.Queue != nil {
		err = c.Queue.Shutdown(ctx)
	}
	c.closePool()
	return err
}

func (c *Container) closePool() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}
