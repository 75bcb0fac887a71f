package repo

import (
	"context"
	"fmt"

	"inviteai/internal/domain"
	"inviteai/internal/infra"
	"inviteai/internal/sqlinline"

	"github.com/jackc/pgx/v5"
)

// UnitRepositoryPG implements domain.UnitRepository.
type UnitRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewUnitRepository(sql infra.SQLExecutor) *UnitRepositoryPG {
	return &UnitRepositoryPG{sql: sql}
}

func (r *UnitRepositoryPG) Create(ctx context.Context, unit *domain.Unit) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGenerationUnit,
		unit.ID,
		unit.JobID,
		unit.UserID,
		unit.Index,
		unit.OriginalURL,
		unit.Style,
		unit.Role,
		unit.ModelID,
	)
	if err := row.Scan(&unit.CreatedAt); err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}
	unit.Status = domain.UnitStatusProcessing
	unit.GeneratedURLs = []string{}
	return nil
}

func (r *UnitRepositoryPG) Complete(ctx context.Context, unitID string, urls []string) error {
	return r.execOne(ctx, sqlinline.QCompleteGenerationUnit, unitID, urls)
}

func (r *UnitRepositoryPG) Fail(ctx context.Context, unitID, reason string) error {
	return r.execOne(ctx, sqlinline.QFailGenerationUnit, unitID, reason)
}

func (r *UnitRepositoryPG) Get(ctx context.Context, unitID, userID string) (*domain.Unit, error) {
	return scanUnit(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationUnit, unitID, userID))
}

func (r *UnitRepositoryPG) ListByJob(ctx context.Context, jobID, userID string) ([]domain.Unit, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerationUnitsByJob, jobID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

// Update applies the non-nil fields of patch.
func (r *UnitRepositoryPG) Update(ctx context.Context, unitID, userID string, patch domain.UnitPatch) (*domain.Unit, error) {
	return scanUnit(r.sql.QueryRow(ctx, sqlinline.QUpdateGenerationUnit, unitID, userID, patch.SelectedURL, patch.IsFavorited))
}

func (r *UnitRepositoryPG) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUnit(row pgx.Row) (*domain.Unit, error) {
	var (
		u      domain.Unit
		status string
	)
	if err := row.Scan(
		&u.ID,
		&u.JobID,
		&u.UserID,
		&u.Index,
		&u.OriginalURL,
		&u.Style,
		&u.Role,
		&u.GeneratedURLs,
		&u.SelectedURL,
		&u.IsFavorited,
		&u.ModelID,
		&status,
		&u.Error,
		&u.CreatedAt,
		&u.CompletedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	u.Status = domain.UnitStatus(status)
	if u.GeneratedURLs == nil {
		u.GeneratedURLs = []string{}
	}
	return &u, nil
}

var _ domain.UnitRepository = (*UnitRepositoryPG)(nil)
