package repo

import (
	"context"
	"strings"

	"inviteai/internal/domain"
	"inviteai/internal/infra"
	"inviteai/internal/sqlinline"

	"github.com/jackc/pgx/v5"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// Get fetches a user by UUID.
func (r *UserRepositoryPG) Get(ctx context.Context, userID string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, userID))
}

// FindByEmail fetches a user by case-insensitive email.
func (r *UserRepositoryPG) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByEmail, strings.TrimSpace(email)))
}

// Upsert creates the user if needed and returns the stored row.
func (r *UserRepositoryPG) Upsert(ctx context.Context, email, name string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrInvalidRequest
	}
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QUpsertUser, email, strings.TrimSpace(name)))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreditBalance, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &u, nil
}

// mapNoRows converts pgx.ErrNoRows to domain.ErrNotFound.
func mapNoRows(err error) error {
	if infra.IsNoRows(err) {
		return domain.ErrNotFound
	}
	return err
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
