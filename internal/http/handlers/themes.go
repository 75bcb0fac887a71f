package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"inviteai/internal/domain"
	"inviteai/internal/domain/jsoncfg"
)

// CreateTheme returns 202 for background requests and 201 once a foreground
// request reached a terminal status.
func (a *App) CreateTheme(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req jsoncfg.ThemeRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	rec, err := a.Themes.Create(r.Context(), userID, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	code := http.StatusCreated
	if rec.Status == domain.ThemeStatusQueued || rec.Status == domain.ThemeStatusProcessing {
		code = http.StatusAccepted
	}
	a.json(w, code, toThemeDTO(*rec))
}

func (a *App) ListThemes(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	recs, err := a.Themes.List(r.Context(), userID, queryLimit(r, 20))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]themeDTO, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toThemeDTO(rec))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GetTheme(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	rec, err := a.Themes.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toThemeDTO(*rec))
}
