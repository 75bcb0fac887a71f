package migrations

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllIsOrderedAndNonEmpty(t *testing.T) {
	all, err := All()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i, m := range all {
		assert.NotEmpty(t, strings.TrimSpace(m.SQL), m.Name)
		if i > 0 {
			assert.Less(t, all[i-1].Name, m.Name)
		}
	}
	assert.Equal(t, "0001_users_and_ledger", Names()[0])
}

// Every table the inline queries touch must be created by some migration.
func TestSchemaCoversQueriedTables(t *testing.T) {
	all, err := All()
	require.NoError(t, err)
	var schema strings.Builder
	for _, m := range all {
		schema.WriteString(m.SQL)
	}
	created := map[string]bool{}
	re := regexp.MustCompile(`create table if not exists (\w+)`)
	for _, m := range re.FindAllStringSubmatch(schema.String(), -1) {
		created[m[1]] = true
	}
	for _, table := range []string{"users", "credit_ledger", "generation_jobs", "generation_units", "theme_generations", "integration_tokens"} {
		assert.True(t, created[table], table)
	}
}
