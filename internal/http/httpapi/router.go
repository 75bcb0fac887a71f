package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"inviteai/internal/http/handlers"
	"inviteai/internal/middleware"
	"inviteai/internal/ratelimit"
)

// Options configures the cross-cutting middleware of the API.
type Options struct {
	JWTSecret       string
	Logger          zerolog.Logger
	Limiter         ratelimit.Limiter
	RateLimitPerMin int
	CORSOrigins     []string
	// StaticDir, when set, is served under /static for the local file store.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle("/static/*", fs)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)

		r.Group(func(r chi.Router) {
			if opts.Limiter != nil && opts.RateLimitPerMin > 0 {
				r.Use(middleware.RateLimit(opts.Limiter, opts.RateLimitPerMin, time.Minute))
			}
			r.Use(middleware.AuthJWT(opts.JWTSecret))

			r.Get("/credits", app.Credits)
			r.Get("/models", app.ListModels)

			r.Route("/generations", func(r chi.Router) {
				r.Post("/", app.CreateGeneration)
				r.Get("/", app.ListGenerations)
				r.Patch("/units/{unit_id}", app.UpdateUnit)
				r.Get("/{id}", app.GetGeneration)
				r.Post("/{id}/complete", app.CompleteGeneration)
			})

			r.Route("/themes", func(r chi.Router) {
				r.Post("/", app.CreateTheme)
				r.Get("/", app.ListThemes)
				r.Get("/{id}", app.GetTheme)
			})
		})
	})

	return r
}
