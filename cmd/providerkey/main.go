package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"inviteai/internal/infra"
	"inviteai/internal/infra/credentials"
)

var envKeys = map[string]string{
	credentials.ProviderGemini: "GEMINI_API_KEY",
	credentials.ProviderQwen:   "QWEN_API_KEY",
	credentials.ProviderOpenAI: "OPENAI_API_KEY",
}

func main() {
	var (
		keyFlag      string
		providerFlag string
		baseURLFlag  string
		listFlag     bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (falls back to environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderGemini, "provider to configure (gemini, qwen or openai)")
	flag.StringVar(&baseURLFlag, "base-url", "", "optional endpoint override stored with the key")
	flag.BoolVar(&listFlag, "list", false, "list providers with stored keys and exit")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "providerkey")
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if listFlag {
		configured, err := store.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list providers: %v\n", err)
			os.Exit(1)
		}
		for _, c := range configured {
			fmt.Printf("%-8s updated %s\n", c.Provider, c.UpdatedAt.Format(time.RFC3339))
		}
		return
	}

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	envKey, ok := envKeys[provider]
	if !ok {
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(envKey))
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "%s API key is required via -key or %s\n", strings.ToUpper(provider), envKey)
		os.Exit(1)
	}

	var props map[string]any
	if base := strings.TrimSpace(baseURLFlag); base != "" {
		props = map[string]any{"base_url": base}
	}
	if err := store.Set(ctx, provider, key, props); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s api key: %v\n", provider, err)
		os.Exit(1)
	}

	fmt.Printf("%s API key stored successfully\n", strings.ToUpper(provider))
}
