package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"inviteai/internal/domain"
	"inviteai/internal/domain/jsoncfg"
	"inviteai/internal/generation"
	"inviteai/pkg/ndjson"
)

type generationResponse struct {
	Job              jobDTO   `json:"job"`
	GeneratedURLs    []string `json:"generatedUrls"`
	Released         int      `json:"released"`
	RemainingCredits int      `json:"remainingCredits"`
}

type completeResponse struct {
	Job              jobDTO `json:"job"`
	Settled          bool   `json:"settled"`
	Released         int    `json:"released"`
	RemainingCredits int    `json:"remainingCredits"`
}

type unitPatchRequest struct {
	SelectedURL *string `json:"selectedUrl" validate:"omitempty,url"`
	IsFavorited *bool   `json:"isFavorited"`
}

func wantsStream(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("stream")) {
	case "1", "true", "yes":
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), ndjson.ContentType)
}

// CreateGeneration reserves credits and runs a batch. Streaming clients get
// NDJSON events as units finish; others get the settled job.
func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req jsoncfg.GenerationRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	sub, err := a.Generations.Submit(r.Context(), userID, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if wantsStream(r) {
		w.Header().Set("Content-Type", ndjson.ContentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		out := ndjson.NewWriter(w)
		log := a.Logger.With().Str("job_id", sub.Job.ID).Logger()
		_, err := a.Generations.Run(r.Context(), sub, func(ev generation.Event) {
			if werr := out.Write(ev); werr != nil {
				log.Debug().Err(werr).Str("event", ev.Type).Msg("stream write failed")
			}
		})
		if err != nil {
			log.Error().Err(err).Msg("streamed generation failed")
		}
		return
	}

	res, err := a.Generations.Run(r.Context(), sub, nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	urls := res.Batch.URLs()
	if urls == nil {
		urls = []string{}
	}
	a.json(w, http.StatusOK, generationResponse{
		Job:              toJobDTO(*res.Complete.Job),
		GeneratedURLs:    urls,
		Released:         res.Complete.Released,
		RemainingCredits: res.Complete.Balance,
	})
}

func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobs, err := a.Generations.ListJobs(r.Context(), userID, queryLimit(r, 20))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]jobDTO, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, toJobDTO(j))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	view, err := a.Generations.GetJob(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"job":   toJobDTO(*view.Job),
		"units": toUnitDTOs(view.Units),
	})
}

// CompleteGeneration settles a job whose stream was cut. It is idempotent.
func (a *App) CompleteGeneration(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	res, err := a.Generations.Complete(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, completeResponse{
		Job:              toJobDTO(*res.Job),
		Settled:          res.Settled,
		Released:         res.Released,
		RemainingCredits: res.Balance,
	})
}

func (a *App) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req unitPatchRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	unit, err := a.Generations.UpdateUnit(r.Context(), userID, chi.URLParam(r, "unit_id"), domain.UnitPatch{
		SelectedURL: req.SelectedURL,
		IsFavorited: req.IsFavorited,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toUnitDTO(*unit))
}
