package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdulachik/sciencepedia/internal/config"
	"github.com/abdulachik/sciencepedia/internal/index"
	"github.com/abdulachik/sciencepedia/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `<urlset>
  <url><loc>https://example.org/sp/feynman/keyword/density_functional_theory</loc></url>
  <url><loc>https://example.org/sp/feynman/keyword/crispr_screening</loc></url>
  <url><loc>https://example.org/sp/feynman/keyword/entropy</loc></url>
</urlset>`

func testConfig(t *testing.T, sitemapURL string) *config.Config {
	t.Helper()
	return &config.Config{
		IndexPath:      filepath.Join(t.TempDir(), "index.db"),
		BaseURL:        "https://example.org/sp",
		SitemapURLs:    []string{sitemapURL},
		FetchTimeout:   5 * time.Second,
		FetchWorkers:   1,
		ResolveWorkers: 2,
		DefaultTop:     3,
		TokenThreshold: 0.5,
		FuzzyFloor:     0.6,
	}
}

func TestApp_RefreshAndLookup(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listing)
	}))
	defer server.Close()

	a, err := New(testConfig(t, server.URL+"/sitemap_keyword_1.xml"))
	require.NoError(t, err)

	t.Run("lookup before refresh", func(t *testing.T) {
		_, err := a.Lookup(ctx, []string{"entropy"}, 3)
		assert.ErrorIs(t, err, index.ErrIndexNotFound)
	})

	idx, err := a.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	t.Run("lookup after refresh", func(t *testing.T) {
		results, err := a.Lookup(ctx, []string{"CRISPR screening", "entropy", "nothing like it"}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		require.Len(t, results[0].Candidates, 1)
		assert.Equal(t, "CRISPR Screening", results[0].Candidates[0].Name)
		assert.Equal(t, "https://example.org/sp/feynman/keyword/crispr_screening", results[0].Candidates[0].URL)

		assert.Equal(t, resolver.MatchExactSlug, results[1].Candidates[0].MatchType)
		assert.Empty(t, results[2].Candidates)
	})

	t.Run("invalid top", func(t *testing.T) {
		_, err := a.Lookup(ctx, []string{"entropy"}, 0)
		assert.ErrorIs(t, err, resolver.ErrInvalidTopN)
	})
}

func TestNew_NamingFile(t *testing.T) {
	t.Run("custom acronyms", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "naming.yaml")
		require.NoError(t, os.WriteFile(path, []byte("acronyms: [DFT]\n"), 0644))

		cfg := testConfig(t, "https://example.org/sitemap.xml")
		cfg.NamingFile = path

		a, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, "DFT Basics", a.Naming.Deslugify("dft_basics"))
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := testConfig(t, "https://example.org/sitemap.xml")
		cfg.NamingFile = filepath.Join(t.TempDir(), "missing.yaml")

		_, err := New(cfg)
		assert.Error(t, err)
	})
}
