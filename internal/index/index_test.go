package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdulachik/sciencepedia/internal/concept"
	"github.com/abdulachik/sciencepedia/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://example.org/sp"

func entry(slug string) concept.Entry {
	return concept.NewEntry(testBase, slug, concept.DefaultNaming())
}

func testIndex() *Index {
	return Build(Meta{BaseURL: testBase, SourceDigest: "abc"}, []concept.Entry{
		entry("quantum_field_theory"),
		entry("density_functional_theory"),
		entry("entropy"),
		entry("lens_%28optics%29"),
		entry("entropy"),
	})
}

func TestBuild(t *testing.T) {
	idx := testIndex()

	t.Run("sorts and dedupes by slug", func(t *testing.T) {
		require.Equal(t, 4, idx.Len())
		assert.Equal(t, "density_functional_theory", idx.Entry(0).Slug)
		assert.Equal(t, "entropy", idx.Entry(1).Slug)
		assert.Equal(t, "lens_%28optics%29", idx.Entry(2).Slug)
		assert.Equal(t, "quantum_field_theory", idx.Entry(3).Slug)
		assert.Equal(t, 4, idx.Meta().EntryCount)
		assert.Equal(t, SchemaVersion, idx.Meta().SchemaVersion)
	})

	t.Run("slug lookup", func(t *testing.T) {
		pos, ok := idx.LookupSlug("entropy")
		require.True(t, ok)
		assert.Equal(t, "Entropy", idx.Entry(pos).Name)

		_, ok = idx.LookupSlug("Entropy")
		assert.False(t, ok)
	})

	t.Run("folded name lookup", func(t *testing.T) {
		pos, ok := idx.LookupName("density functional theory")
		require.True(t, ok)
		assert.Equal(t, "density_functional_theory", idx.Entry(pos).Slug)
		assert.Equal(t, "density functional theory", idx.FoldedName(pos))
	})

	t.Run("token postings cover names and slugs", func(t *testing.T) {
		theory := idx.Postings("theory")
		assert.Equal(t, []int{0, 3}, theory)

		optics := idx.Postings("optics")
		require.Len(t, optics, 1)
		assert.Equal(t, "lens_%28optics%29", idx.Entry(optics[0]).Slug)

		assert.Empty(t, idx.Postings("missing"))
	})

	t.Run("name tokens", func(t *testing.T) {
		pos, _ := idx.LookupSlug("lens_%28optics%29")
		assert.Equal(t, []string{"lens", "optics"}, idx.NameTokens(pos))
	})
}

func TestBuild_NameCollisions(t *testing.T) {
	idx := Build(Meta{BaseURL: testBase}, []concept.Entry{
		{Slug: "x_ray", Name: "X Ray", URL: concept.URLFor(testBase, "x_ray")},
		{Slug: "X_ray", Name: "x ray", URL: concept.URLFor(testBase, "X_ray")},
	})

	assert.Equal(t, 1, idx.NameCollisions())

	pos, ok := idx.LookupName("x ray")
	require.True(t, ok)
	// "X_ray" sorts before "x_ray" and keeps the name.
	assert.Equal(t, "X_ray", idx.Entry(pos).Slug)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "index.db")
		built := Build(Meta{
			BaseURL:      testBase,
			SourceDigest: "abc",
			BuiltAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}, testIndex().Entries())

		require.NoError(t, built.Save(ctx, path))

		loaded, err := Load(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, built.Entries(), loaded.Entries())
		assert.Equal(t, built.Meta(), loaded.Meta())
		assert.Equal(t, built.TokenCount(), loaded.TokenCount())
		assert.Equal(t, built.Postings("theory"), loaded.Postings("theory"))
		assert.Equal(t, built.snapshot(), loaded.snapshot())
	})

	t.Run("urls round trip through template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.db")
		require.NoError(t, testIndex().Save(ctx, path))

		loaded, err := Load(ctx, path)
		require.NoError(t, err)
		for _, e := range loaded.Entries() {
			assert.Equal(t, concept.URLFor(loaded.Meta().BaseURL, e.Slug), e.URL)
		}
	})

	t.Run("missing artifact", func(t *testing.T) {
		_, err := Load(ctx, filepath.Join(t.TempDir(), "nope.db"))
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})

	t.Run("replaces previous artifact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.db")
		require.NoError(t, testIndex().Save(ctx, path))

		smaller := Build(Meta{BaseURL: testBase}, []concept.Entry{entry("entropy")})
		require.NoError(t, smaller.Save(ctx, path))

		loaded, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Len())
		assertNoTempFiles(t, filepath.Dir(path))
	})

	t.Run("failed save leaves previous artifact untouched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.db")
		require.NoError(t, testIndex().Save(ctx, path))
		before, err := os.ReadFile(path)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		smaller := Build(Meta{BaseURL: testBase}, []concept.Entry{entry("entropy")})
		require.Error(t, smaller.Save(cancelled, path))

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assertNoTempFiles(t, filepath.Dir(path))
	})
	t.Run("artifact is readable by others", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.db")
		require.NoError(t, testIndex().Save(ctx, path))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(artifactMode), info.Mode().Perm())
	})
}

func TestLoad_Corrupt(t *testing.T) {
	ctx := context.Background()

	t.Run("url inconsistent with slug", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.db")
		writeSnapshot(t, path, &db.Snapshot{
			Concepts: []db.Concept{{Slug: "entropy", Name: "Entropy", Url: "https://elsewhere/entropy"}},
			Meta:     map[string]string{metaBaseURL: testBase},
		})

		_, err := Load(ctx, path)
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("missing base url", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.db")
		writeSnapshot(t, path, &db.Snapshot{Meta: map[string]string{}})

		_, err := Load(ctx, path)
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("not an index", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.db")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		_, err := Load(ctx, path)
		assert.ErrorIs(t, err, ErrCorruptIndex)

		// The read failure stays in the chain next to the sentinel.
		var joined interface{ Unwrap() []error }
		require.ErrorAs(t, err, &joined)
		causes := joined.Unwrap()
		require.Len(t, causes, 2)
		assert.Contains(t, causes[1].Error(), "list concepts")
	})
}

func writeSnapshot(t *testing.T, path string, snap *db.Snapshot) {
	t.Helper()
	ctx := context.Background()

	store, err := db.NewStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.WriteSnapshot(ctx, snap))
	require.NoError(t, store.Finalize(ctx))
	require.NoError(t, store.Close())
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
