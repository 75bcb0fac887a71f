package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"inviteai/internal/adapter/repo"
	"inviteai/internal/domain"
	"inviteai/internal/infra"
	"inviteai/internal/ledger"
)

func main() {
	var (
		idFlag     string
		emailFlag  string
		amountFlag int
		noteFlag   string
		createFlag bool
	)

	flag.StringVar(&idFlag, "id", "", "user ID to credit (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to credit")
	flag.IntVar(&amountFlag, "amount", 0, "credits to grant (must be positive)")
	flag.StringVar(&noteFlag, "note", "manual top-up", "description stored on the ledger entry")
	flag.BoolVar(&createFlag, "create", false, "create the user by email when it does not exist")
	flag.Parse()

	_ = godotenv.Load()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if amountFlag <= 0 {
		exitWithError(errors.New("-amount must be positive"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "credits")
	runner := infra.NewSQLRunner(pool, logger)
	users := repo.NewUserRepository(runner)

	var user *domain.User
	switch {
	case userID != "":
		user, err = users.Get(ctx, userID)
	case createFlag:
		user, err = users.Upsert(ctx, email, "")
	default:
		user, err = users.FindByEmail(ctx, email)
	}
	if err != nil {
		exitWithError(fmt.Errorf("failed to load user: %w", err))
	}

	l := ledger.New(repo.NewCreditRepository(runner), logger)
	balance, err := l.Grant(ctx, user.ID, amountFlag, domain.CreditRef{
		Type:        domain.RefAdminGrant,
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(noteFlag),
	})
	if err != nil {
		exitWithError(fmt.Errorf("failed to grant credits: %w", err))
	}

	fmt.Printf("User %s (%s) granted %d credits\n", user.ID, user.Email, amountFlag)
	fmt.Printf("balance=%d\n", balance)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
