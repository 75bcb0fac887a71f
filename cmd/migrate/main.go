package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"inviteai/internal/infra"
	"inviteai/internal/migrations"
)

func main() {
	var listFlag bool
	flag.BoolVar(&listFlag, "list", false, "print embedded migrations and exit")
	flag.Parse()

	if listFlag {
		for _, name := range migrations.Names() {
			fmt.Println(name)
		}
		return
	}

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	logger := infra.NewLogger(os.Getenv("APP_ENV"), "migrate")

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	applied, err := migrations.NewMigrator(db, logger).Up(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	logger.Info().Strs("applied", applied).Msg("migrations up to date")
}
