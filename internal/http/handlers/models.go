package handlers

import (
	"net/http"

	"inviteai/internal/domain"
)

// ListModels lists the catalog, optionally filtered by ?kind=image|text.
func (a *App) ListModels(w http.ResponseWriter, r *http.Request) {
	var models []domain.ModelDescriptor
	switch domain.ModelKind(r.URL.Query().Get("kind")) {
	case domain.ModelKindImage:
		models = a.Models.Images()
	case domain.ModelKindText:
		models = a.Models.Texts()
	case "":
		models = a.Models.All()
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "kind must be image or text")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"models": models})
}
