package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `
-- header comment
CREATE TABLE a (id TEXT);

-- another comment
CREATE INDEX idx_a ON a (id);

-- trailing comment only
`
	stmts := splitStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "CREATE INDEX idx_a")
}

func TestSplitStatements_EmptyScript(t *testing.T) {
	assert.Empty(t, splitStatements(""))
	assert.Empty(t, splitStatements("-- only comments\n-- more"))
}

func TestEmbeddedMigrationIsWellFormed(t *testing.T) {
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].Version)

	stmts := splitStatements(migrations[0].SQL)
	require.NotEmpty(t, stmts)

	var joined string
	for _, s := range stmts {
		joined += s + "\n"
	}
	assert.Contains(t, joined, "context_snapshots")
	assert.Contains(t, joined, "trigger_fuses")
}
