package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Run("creates directory and database", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "subdir", "test.db")

		ctx := context.Background()
		store, err := NewStore(ctx, dbPath)
		require.NoError(t, err)
		defer store.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
		assert.Equal(t, dbPath, store.Path())

		var result int
		err = store.QueryRowContext(ctx, "SELECT 1").Scan(&result)
		assert.NoError(t, err)
		assert.Equal(t, 1, result)
	})

	t.Run("sets WAL mode", func(t *testing.T) {
		ctx := context.Background()
		store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer store.Close()

		var mode string
		err = store.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode)
		assert.NoError(t, err)
		assert.Equal(t, "wal", mode)
	})

	t.Run("enables foreign keys", func(t *testing.T) {
		ctx := context.Background()
		store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer store.Close()

		var fk int
		err = store.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk)
		assert.NoError(t, err)
		assert.Equal(t, 1, fk)
	})
}

func TestOpenReadOnly(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	writer, err := NewStore(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, writer.Migrate(ctx))
	require.NoError(t, writer.InsertConcept(ctx, Concept{Slug: "entropy", Name: "Entropy", Url: "u"}))
	require.NoError(t, writer.Finalize(ctx))
	require.NoError(t, writer.Close())

	t.Run("finalize leaves a single file", func(t *testing.T) {
		_, err := os.Stat(dbPath + "-wal")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("reads existing rows", func(t *testing.T) {
		reader, err := OpenReadOnly(ctx, dbPath)
		require.NoError(t, err)
		defer reader.Close()

		count, err := reader.CountConcepts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects writes", func(t *testing.T) {
		reader, err := OpenReadOnly(ctx, dbPath)
		require.NoError(t, err)
		defer reader.Close()

		err = reader.InsertConcept(ctx, Concept{Slug: "heat", Name: "Heat", Url: "u"})
		assert.Error(t, err)
	})
}

func TestStore_Migrate(t *testing.T) {
	t.Run("applies migrations", func(t *testing.T) {
		store := NewTestStore(t)
		ctx := context.Background()

		for _, table := range []string{"concepts", "concept_names", "concept_tokens", "index_meta"} {
			var name string
			err := store.QueryRowContext(ctx,
				"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			assert.NoError(t, err, table)
			assert.Equal(t, table, name)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		store := NewTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Migrate(ctx))

		count, err := store.CountConcepts(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestExtractUpMigration(t *testing.T) {
	t.Run("extracts up portion", func(t *testing.T) {
		content := `-- +migrate Up
CREATE TABLE test (id INTEGER);

-- +migrate Down
DROP TABLE test;
`
		assert.Equal(t, "CREATE TABLE test (id INTEGER);", extractUpMigration(content))
	})

	t.Run("handles no down marker", func(t *testing.T) {
		content := "CREATE TABLE test (id INTEGER);"
		assert.Equal(t, "CREATE TABLE test (id INTEGER);", extractUpMigration(content))
	})
}

func TestStore_Snapshot(t *testing.T) {
	ctx := context.Background()

	snap := &Snapshot{
		Concepts: []Concept{
			{Slug: "entropy", Name: "Entropy", Url: "https://x.org/feynman/keyword/entropy"},
			{Slug: "quantum_field_theory", Name: "Quantum Field Theory", Url: "https://x.org/feynman/keyword/quantum_field_theory"},
		},
		Names: []ConceptName{
			{NameKey: "entropy", Slug: "entropy"},
			{NameKey: "quantum field theory", Slug: "quantum_field_theory"},
		},
		Tokens: []ConceptToken{
			{Token: "entropy", Slug: "entropy"},
			{Token: "field", Slug: "quantum_field_theory"},
			{Token: "quantum", Slug: "quantum_field_theory"},
			{Token: "theory", Slug: "quantum_field_theory"},
		},
		Meta: map[string]string{"base_url": "https://x.org", "entry_count": "2"},
	}

	t.Run("round trips rows", func(t *testing.T) {
		store := NewTestStore(t)
		require.NoError(t, store.WriteSnapshot(ctx, snap))

		got, err := store.ReadSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, snap, got)

		tokens, err := store.CountDistinctTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), tokens)

		c, err := store.GetConcept(ctx, "entropy")
		require.NoError(t, err)
		assert.Equal(t, "Entropy", c.Name)
	})

	t.Run("rolls back on constraint violation", func(t *testing.T) {
		store := NewTestStore(t)
		bad := &Snapshot{
			Concepts: []Concept{
				{Slug: "entropy", Name: "Entropy", Url: "u"},
				{Slug: "entropy", Name: "Entropy again", Url: "u"},
			},
		}

		err := store.WriteSnapshot(ctx, bad)
		require.Error(t, err)

		count, err := store.CountConcepts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("rolls back when a name points at an unknown slug", func(t *testing.T) {
		store := NewTestStore(t)
		bad := &Snapshot{
			Concepts: []Concept{{Slug: "entropy", Name: "Entropy", Url: "u"}},
			Names:    []ConceptName{{NameKey: "lens", Slug: "lens"}},
		}

		err := store.WriteSnapshot(ctx, bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `insert name "lens"`)

		count, err := store.CountConcepts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("meta upsert and missing key", func(t *testing.T) {
		store := NewTestStore(t)
		require.NoError(t, store.SetMeta(ctx, "k", "v1"))
		require.NoError(t, store.SetMeta(ctx, "k", "v2"))

		v, err := store.GetMeta(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v2", v)

		_, err = store.GetMeta(ctx, "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

// NewTestStore provides a migrated test database.
func NewTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
