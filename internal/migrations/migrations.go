// Package migrations embeds the Postgres schema and applies it in order.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var files embed.FS

// lockID serializes concurrent migrators through a session advisory lock.
const lockID = 727274001

// Migration is one embedded schema file.
type Migration struct {
	Name string
	SQL  string
}

// All returns the embedded migrations ordered by file name.
func All() ([]Migration, error) {
	entries, err := files.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	out := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		body, err := files.ReadFile("sql/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Name: e.Name(), SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Migrator applies pending migrations, each in its own transaction.
type Migrator struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMigrator(db *sql.DB, logger zerolog.Logger) *Migrator {
	return &Migrator{db: db, logger: logger.With().Str("component", "migrator").Logger()}
}

// Up applies every migration not yet recorded and returns their names.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `select pg_advisory_lock($1)`, lockID); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), `select pg_advisory_unlock($1)`, lockID); err != nil {
			m.logger.Warn().Err(err).Msg("release migration lock")
		}
	}()

	if _, err := conn.ExecContext(ctx, `create table if not exists schema_migrations (
		name text primary key,
		applied_at timestamptz not null default now()
	)`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	done, err := applied(ctx, conn)
	if err != nil {
		return nil, err
	}
	all, err := All()
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, mig := range all {
		if _, ok := done[mig.Name]; ok {
			m.logger.Debug().Str("migration", mig.Name).Msg("already applied")
			continue
		}
		if err := apply(ctx, conn, mig); err != nil {
			return ran, err
		}
		m.logger.Info().Str("migration", mig.Name).Msg("applied")
		ran = append(ran, mig.Name)
	}
	return ran, nil
}

func applied(ctx context.Context, conn *sql.Conn) (map[string]struct{}, error) {
	rows, err := conn.QueryContext(ctx, `select name from schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()
	out := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

func apply(ctx context.Context, conn *sql.Conn, mig Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", mig.Name, err)
	}
	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply %s: %w", mig.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `insert into schema_migrations (name) values ($1)`, mig.Name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record %s: %w", mig.Name, err)
	}
	return tx.Commit()
}

// Names lists the embedded migration names.
func Names() []string {
	all, err := All()
	if err != nil {
		return nil
	}
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = strings.TrimSuffix(m.Name, ".sql")
	}
	return names
}
