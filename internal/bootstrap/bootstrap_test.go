package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteai/internal/domain"
	"inviteai/internal/domain/jsoncfg"
	"inviteai/internal/infra"
)

func memoryConfig(t *testing.T) *infra.Config {
	t.Helper()
	return &infra.Config{
		AppEnv:               "test",
		StoreDriver:          "memory",
		DevUserID:            "dev-user",
		DevUserCredits:       7,
		StorageDriver:        "fs",
		StoragePath:          t.TempDir(),
		StorageBaseURL:       "http://cdn.test/static",
		ImageSourceAllowlist: []string{"cdn.test"},
		GenerationRateLimit:  10,
		GenerationRateWindow: time.Minute,
		ThemeRateLimit:       10,
		ThemeRateWindow:      time.Minute,
		BatchSizeDefault:     2,
		BatchSizeMax:         4,
		BatchParallelism:     1,
		TaskWorkers:          1,
		TaskQueueSize:        4,
	}
}

func TestNewMemoryContainerSeedsDevUser(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, memoryConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	require.NotNil(t, c.FileStore)
	assert.Nil(t, c.Credentials)
	assert.NoError(t, c.Ping(ctx))

	balance, err := c.Ledger.Balance(ctx, "dev-user")
	require.NoError(t, err)
	assert.Equal(t, 7, balance)
}

func TestMemoryContainerFallsBackWithoutKeys(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, memoryConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	rec, err := c.Themes.Create(ctx, "dev-user", jsoncfg.ThemeRequest{
		Prompt:  "a rustic garden wedding",
		ModelID: "gpt-4o-mini",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusCompleted, rec.Status)
	assert.NotEmpty(t, rec.Theme)
}
