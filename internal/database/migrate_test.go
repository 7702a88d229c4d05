package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingFilesOnlyUpInOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_reports.up.sql":   {Data: []byte("SELECT 1")},
		"migrations/0001_terminal.up.sql":  {Data: []byte("SELECT 1")},
		"migrations/0001_terminal.down.sql": {Data: []byte("SELECT 1")},
		"migrations/README.md":             {Data: []byte("notes")},
	}

	files, err := pendingFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_terminal.up.sql", "0002_reports.up.sql"}, files)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := pendingFiles(migrationFS)
	require.NoError(t, err)
	assert.NotEmpty(t, files)
	assert.Equal(t, "0001_terminal.up.sql", files[0])
}
