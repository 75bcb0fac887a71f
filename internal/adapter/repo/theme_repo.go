package repo

import (
	"context"
	"fmt"
	"time"

	"inviteai/internal/domain"
	"inviteai/internal/infra"
	"inviteai/internal/sqlinline"

	"github.com/jackc/pgx/v5"
)

// ThemeRepositoryPG implements domain.ThemeRepository on theme_generations.
type ThemeRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewThemeRepository(sql infra.SQLExecutor) *ThemeRepositoryPG {
	return &ThemeRepositoryPG{sql: sql}
}

func (r *ThemeRepositoryPG) Create(ctx context.Context, rec *domain.ThemeRecord) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertThemeGeneration,
		rec.ID,
		rec.UserID,
		rec.InvitationID,
		rec.Prompt,
		rec.ModelID,
		string(rec.Status),
		rec.CreditsUsed,
		nullableJSON(rec.Request),
	)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return fmt.Errorf("insert theme: %w", err)
	}
	return nil
}

func (r *ThemeRepositoryPG) Get(ctx context.Context, id, userID string) (*domain.ThemeRecord, error) {
	return scanTheme(r.sql.QueryRow(ctx, sqlinline.QSelectThemeGeneration, id, userID))
}

func (r *ThemeRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ThemeRecord, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListThemeGenerationsByUser, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectThemes(rows)
}

// ListByStatus claims up to limit records that have sat in status since
// before olderThan.
func (r *ThemeRepositoryPG) ListByStatus(ctx context.Context, status domain.ThemeStatus, olderThan time.Time, limit int) ([]domain.ThemeRecord, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QClaimThemeGenerationsByStatus, string(status), olderThan, limit)
	if err != nil {
		return nil, err
	}
	return collectThemes(rows)
}

func (r *ThemeRepositoryPG) Transition(ctx context.Context, id string, from, to domain.ThemeStatus) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QTransitionThemeGeneration, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ThemeRepositoryPG) Finish(ctx context.Context, id string, from domain.ThemeStatus, res domain.ThemeResult) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFinishThemeGeneration,
		id,
		string(from),
		string(res.Status),
		nullableJSON(res.Theme),
		res.FailReason,
		res.CreditsUsed,
		res.InputTokens,
		res.OutputTokens,
		res.Cost,
		res.DurationMS,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanTheme(row pgx.Row) (*domain.ThemeRecord, error) {
	var (
		rec     domain.ThemeRecord
		status  string
		theme   []byte
		request []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.InvitationID,
		&rec.Prompt,
		&rec.ModelID,
		&theme,
		&status,
		&rec.FailReason,
		&rec.CreditsUsed,
		&rec.InputTokens,
		&rec.OutputTokens,
		&rec.Cost,
		&rec.DurationMS,
		&request,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	rec.Status = domain.ThemeStatus(status)
	rec.Theme = theme
	rec.Request = request
	return &rec, nil
}

func collectThemes(rows pgx.Rows) ([]domain.ThemeRecord, error) {
	defer rows.Close()
	var out []domain.ThemeRecord
	for rows.Next() {
		rec, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func nullableJSON(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.ThemeRepository = (*ThemeRepositoryPG)(nil)
