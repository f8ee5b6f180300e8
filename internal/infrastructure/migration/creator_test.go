package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add party directory", "add_party_directory"},
		{"Add-Party-Directory", "add_party_directory"},
		{"ADD_PARTY_DIRECTORY", "add_party_directory"},
		{"add__party__directory", "add_party_directory"},
		{"Add Outbox 123", "add_outbox_123"},
		{"create-snapshot-records", "create_snapshot_records"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeName(tt.input), "input %q", tt.input)
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("writes a matching up/down pair", func(t *testing.T) {
		mf, err := CreateMigration(t.TempDir(), "add party directory", "Party existence lookup table")
		require.NoError(t, err)

		assert.Len(t, mf.Version, 14) // YYYYMMDDHHMMSS
		assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
		assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))
		assert.Equal(t,
			strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql"),
			strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql"))

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "add party directory")
		assert.Contains(t, string(up), "Party existence lookup table")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "rollback")
		assert.Contains(t, string(down), "Rollback for Party existence lookup table")
	})

	t.Run("creates the migrations directory", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(nested, "test", "test migration")
		require.NoError(t, err)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func writeMigrationFixtures(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0644))
	}
}

func TestListMigrations(t *testing.T) {
	t.Run("returns sorted base names", func(t *testing.T) {
		dir := t.TempDir()
		writeMigrationFixtures(t, dir,
			"000002_add_party_directory.up.sql",
			"000002_add_party_directory.down.sql",
			"000001_init_ledger.up.sql",
			"000001_init_ledger.down.sql",
			"000003_outbox_indexes.up.sql",
			"000003_outbox_indexes.down.sql",
		)

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"000001_init_ledger",
			"000002_add_party_directory",
			"000003_outbox_indexes",
		}, migrations)
	})

	t.Run("empty directory", func(t *testing.T) {
		migrations, err := ListMigrations(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("missing directory", func(t *testing.T) {
		migrations, err := ListMigrations("/nonexistent/path/to/migrations")
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("ignores non-migration files and directories", func(t *testing.T) {
		dir := t.TempDir()
		writeMigrationFixtures(t, dir,
			"000001_init.up.sql",
			"000001_init.down.sql",
			"README.md",
			".gitkeep",
		)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0755))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init"}, migrations)
	})
}
