package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"inviteai/internal/bootstrap"
	"inviteai/internal/http/handlers"
	"inviteai/internal/http/httpapi"
	"inviteai/internal/infra"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	container, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise services")
	}

	app := handlers.NewApp(logger, container.Catalog, container.Ledger, container.Generations, container.Themes, container.Ping)

	opts := httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		Logger:          logger,
		Limiter:         container.Limiter,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
	}
	if container.FileStore != nil {
		opts.StaticDir = container.FileStore.BasePath()
	}
	router := httpapi.NewRouter(app, opts)

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("store", cfg.StoreDriver).Str("storage", cfg.StorageDriver).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// Streams in flight may run as long as the write timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPWriteTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("background tasks did not drain")
	}
	logger.Info().Msg("server stopped")
}
