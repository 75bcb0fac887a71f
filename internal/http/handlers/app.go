package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"inviteai/internal/catalog"
	"inviteai/internal/domain"
	"inviteai/internal/generation"
	"inviteai/internal/ledger"
	"inviteai/internal/middleware"
	"inviteai/internal/theme"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type App struct {
	Logger      zerolog.Logger
	Models      *catalog.Catalog
	Ledger      *ledger.Ledger
	Generations *generation.Service
	Themes      *theme.Service
	Ping        Pinger

	validate *validator.Validate
}

func NewApp(logger zerolog.Logger, models *catalog.Catalog, l *ledger.Ledger, generations *generation.Service, themes *theme.Service, ping Pinger) *App {
	return &App{
		Logger:      logger.With().Str("component", "http").Logger(),
		Models:      models,
		Ledger:      l,
		Generations: generations,
		Themes:      themes,
		Ping:        ping,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]apiError{"error": {Code: errCode, Message: message}})
}

// fail maps a service error onto the API error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrJobInProgress):
		a.error(w, http.StatusConflict, "conflict", "job is still generating")
	case errors.Is(err, domain.ErrRateLimited):
		a.error(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later")
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidAmount):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrQueueFull):
		a.error(w, http.StatusServiceUnavailable, "unavailable", "server is busy, try again later")
	case errors.Is(err, domain.ErrUnknownModel):
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("unknown model requested")
		a.error(w, http.StatusInternalServerError, "unknown_model", err.Error())
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// decode reads a JSON body into dst and runs its validate tags.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidRequest)
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %s", domain.ErrInvalidRequest, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func queryLimit(r *http.Request, fallback int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
