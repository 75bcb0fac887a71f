package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inviteai/internal/infra"
	"inviteai/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
	ProviderQwen   = "qwen"
	ProviderOpenAI = "openai"
)

var knownProviders = map[string]struct{}{
	ProviderGemini: {},
	ProviderQwen:   {},
	ProviderOpenAI: {},
}

// Store reads vendor API keys from the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored key for provider, or "" when none is saved.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if s == nil || s.sql == nil {
		return "", nil
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("load %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// Resolve prefers the env-provided key and falls back to the stored one.
func (s *Store) Resolve(ctx context.Context, provider, fromEnv string) (string, error) {
	if key := strings.TrimSpace(fromEnv); key != "" {
		return key, nil
	}
	return s.Token(ctx, provider)
}

// Set upserts the key for a known provider.
func (s *Store) Set(ctx context.Context, provider, key string, props map[string]any) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if _, ok := knownProviders[provider]; !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, key, raw)
	return err
}

// Configured is a provider that has a stored key.
type Configured struct {
	Provider  string
	UpdatedAt time.Time
}

// List reports which providers have stored keys, without the keys.
func (s *Store) List(ctx context.Context) ([]Configured, error) {
	if s == nil || s.sql == nil {
		return nil, nil
	}
	rows, err := s.sql.Query(ctx, sqlinline.QListIntegrationProviders)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()
	var out []Configured
	for rows.Next() {
		var c Configured
		if err := rows.Scan(&c.Provider, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
