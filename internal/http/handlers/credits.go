package handlers

import "net/http"

func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	balance, err := a.Ledger.Balance(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries, err := a.Ledger.History(r.Context(), userID, min(queryLimit(r, 20), 100))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]ledgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, ledgerEntryDTO{
			ID:            e.ID,
			Delta:         e.Delta,
			BalanceAfter:  e.BalanceAfter,
			ReferenceType: string(e.ReferenceType),
			ReferenceID:   e.ReferenceID,
			Description:   e.Description,
			CreatedAt:     e.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"balance": balance, "entries": items})
}
