package handlers

import (
	"encoding/json"
	"time"

	"inviteai/internal/domain"
)

type jobDTO struct {
	ID              string     `json:"id"`
	ModelID         string     `json:"modelId"`
	Style           string     `json:"style"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	CreditsReserved int        `json:"creditsReserved"`
	CreditsUsed     int        `json:"creditsUsed"`
	CompletedImages int        `json:"completedImages"`
	FailedImages    int        `json:"failedImages"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

func toJobDTO(j domain.Job) jobDTO {
	return jobDTO{
		ID:              j.ID,
		ModelID:         j.ModelID,
		Style:           j.Style,
		Role:            j.Role,
		Status:          string(j.Status),
		CreditsReserved: j.CreditsReserved,
		CreditsUsed:     j.CreditsUsed,
		CompletedImages: j.CompletedImages,
		FailedImages:    j.FailedImages,
		CreatedAt:       j.CreatedAt,
		CompletedAt:     j.CompletedAt,
	}
}

type unitDTO struct {
	ID            string     `json:"id"`
	JobID         string     `json:"jobId"`
	Index         int        `json:"index"`
	OriginalURL   string     `json:"originalUrl"`
	Style         string     `json:"style"`
	Role          string     `json:"role"`
	GeneratedURLs []string   `json:"generatedUrls"`
	SelectedURL   *string    `json:"selectedUrl,omitempty"`
	IsFavorited   bool       `json:"isFavorited"`
	ModelID       string     `json:"modelId"`
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

func toUnitDTO(u domain.Unit) unitDTO {
	urls := u.GeneratedURLs
	if urls == nil {
		urls = []string{}
	}
	return unitDTO{
		ID:            u.ID,
		JobID:         u.JobID,
		Index:         u.Index,
		OriginalURL:   u.OriginalURL,
		Style:         u.Style,
		Role:          u.Role,
		GeneratedURLs: urls,
		SelectedURL:   u.SelectedURL,
		IsFavorited:   u.IsFavorited,
		ModelID:       u.ModelID,
		Status:        string(u.Status),
		Error:         u.Error,
		CreatedAt:     u.CreatedAt,
		CompletedAt:   u.CompletedAt,
	}
}

func toUnitDTOs(units []domain.Unit) []unitDTO {
	out := make([]unitDTO, 0, len(units))
	for _, u := range units {
		out = append(out, toUnitDTO(u))
	}
	return out
}

type themeDTO struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Prompt       string          `json:"prompt"`
	ModelID      string          `json:"modelId"`
	InvitationID *string         `json:"invitationId,omitempty"`
	Theme        json.RawMessage `json:"theme,omitempty"`
	FailReason   *string         `json:"failReason,omitempty"`
	CreditsUsed  int             `json:"creditsUsed"`
	InputTokens  *int            `json:"inputTokens,omitempty"`
	OutputTokens *int            `json:"outputTokens,omitempty"`
	Cost         *float64        `json:"cost,omitempty"`
	DurationMS   *int64          `json:"durationMs,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func toThemeDTO(t domain.ThemeRecord) themeDTO {
	return themeDTO{
		ID:           t.ID,
		Status:       string(t.Status),
		Prompt:       t.Prompt,
		ModelID:      t.ModelID,
		InvitationID: t.InvitationID,
		Theme:        t.Theme,
		FailReason:   t.FailReason,
		CreditsUsed:  t.CreditsUsed,
		InputTokens:  t.InputTokens,
		OutputTokens: t.OutputTokens,
		Cost:         t.Cost,
		DurationMS:   t.DurationMS,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

type ledgerEntryDTO struct {
	ID            string    `json:"id"`
	Delta         int       `json:"delta"`
	BalanceAfter  int       `json:"balanceAfter"`
	ReferenceType string    `json:"referenceType"`
	ReferenceID   string    `json:"referenceId"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
