package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/abdulachik/sciencepedia/internal/concept"
	"github.com/abdulachik/sciencepedia/internal/db"
)

const (
	metaBaseURL       = "base_url"
	metaEntryCount    = "entry_count"
	metaSourceDigest  = "source_digest"
	metaBuiltAt       = "built_at"
	metaSchemaVersion = "schema_version"

	artifactMode = 0644
)

// Save writes the index to path, replacing any previous artifact
// atomically: rows go to a temporary file in the same directory which is
// renamed over path only once it is complete. On error path is untouched.
func (idx *Index) Save(ctx context.Context, path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	defer func() {
		if err != nil {
			removeArtifact(tmpPath)
		}
	}()

	if err := idx.writeTo(ctx, tmpPath); err != nil {
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		return fmt.Errorf("sync temp index: %w", err)
	}

	// CreateTemp makes owner-only files; the artifact is shared.
	if err := os.Chmod(tmpPath, artifactMode); err != nil {
		return fmt.Errorf("set index permissions: %w", err)
	}

	// Journal files left next to an older artifact must not be paired
	// with the new one.
	os.Remove(path + "-wal")
	os.Remove(path + "-shm")

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}

	if err := syncFile(dir); err != nil {
		slog.Warn("sync index directory", "dir", dir, "error", err)
	}

	slog.Info("index saved",
		"path", path,
		"entries", idx.Len(),
		"tokens", idx.TokenCount(),
	)
	return nil
}

func (idx *Index) writeTo(ctx context.Context, path string) error {
	store, err := db.NewStore(ctx, path)
	if err != nil {
		return fmt.Errorf("open temp index: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return fmt.Errorf("run migrations: %w", err)
	}

	if err := store.WriteSnapshot(ctx, idx.snapshot()); err != nil {
		store.Close()
		return fmt.Errorf("write index rows: %w", err)
	}

	if err := store.Finalize(ctx); err != nil {
		store.Close()
		return err
	}

	return store.Close()
}

// Load reads the index artifact at path.
// Returns ErrIndexNotFound if no artifact exists there.
func Load(ctx context.Context, path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("stat index: %w", err)
	}

	start := time.Now()

	store, err := db.OpenReadOnly(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer store.Close()

	snap, err := store.ReadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptIndex, path, err)
	}

	idx, err := fromSnapshot(snap)
	if err != nil {
		return nil, err
	}

	slog.Debug("index loaded",
		"path", path,
		"entries", idx.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return idx, nil
}

// snapshot converts the index to database rows.
func (idx *Index) snapshot() *db.Snapshot {
	snap := &db.Snapshot{
		Concepts: make([]db.Concept, len(idx.entries)),
		Names:    make([]db.ConceptName, 0, len(idx.byName)),
		Meta: map[string]string{
			metaBaseURL:       idx.meta.BaseURL,
			metaEntryCount:    strconv.Itoa(len(idx.entries)),
			metaSourceDigest:  idx.meta.SourceDigest,
			metaSchemaVersion: strconv.Itoa(idx.meta.SchemaVersion),
		},
	}
	if !idx.meta.BuiltAt.IsZero() {
		snap.Meta[metaBuiltAt] = idx.meta.BuiltAt.UTC().Format(time.RFC3339)
	}

	for i, e := range idx.entries {
		snap.Concepts[i] = db.Concept{Slug: e.Slug, Name: e.Name, Url: e.URL}
	}

	for key, pos := range idx.byName {
		snap.Names = append(snap.Names, db.ConceptName{NameKey: key, Slug: idx.entries[pos].Slug})
	}
	sort.Slice(snap.Names, func(i, j int) bool {
		return snap.Names[i].NameKey < snap.Names[j].NameKey
	})

	tokens := make([]string, 0, len(idx.tokens))
	for tok := range idx.tokens {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	for _, tok := range tokens {
		for _, pos := range idx.tokens[tok] {
			snap.Tokens = append(snap.Tokens, db.ConceptToken{Token: tok, Slug: idx.entries[pos].Slug})
		}
	}

	return snap
}

// fromSnapshot rebuilds an index from database rows and checks that
// every stored URL matches its slug.
func fromSnapshot(snap *db.Snapshot) (*Index, error) {
	meta, err := parseMeta(snap.Meta)
	if err != nil {
		return nil, err
	}

	idx := newIndex(meta, len(snap.Concepts))
	for _, c := range snap.Concepts {
		if want := concept.URLFor(meta.BaseURL, c.Slug); c.Url != want {
			return nil, fmt.Errorf("%w: entry %s has url %q, want %q", ErrCorruptIndex, c.Slug, c.Url, want)
		}

		pos := len(idx.entries)
		idx.entries = append(idx.entries, concept.Entry{Slug: c.Slug, Name: c.Name, URL: c.Url})
		idx.folded = append(idx.folded, concept.Fold(c.Name))
		idx.nameTokens = append(idx.nameTokens, concept.TokenSet(c.Name))
		idx.bySlug[c.Slug] = pos
	}

	for _, n := range snap.Names {
		pos, ok := idx.bySlug[n.Slug]
		if !ok {
			return nil, fmt.Errorf("%w: name %q refers to unknown slug %s", ErrCorruptIndex, n.NameKey, n.Slug)
		}
		idx.byName[n.NameKey] = pos
	}
	idx.collisions = len(idx.entries) - len(idx.byName)

	for _, t := range snap.Tokens {
		pos, ok := idx.bySlug[t.Slug]
		if !ok {
			return nil, fmt.Errorf("%w: token %q refers to unknown slug %s", ErrCorruptIndex, t.Token, t.Slug)
		}
		idx.tokens[t.Token] = append(idx.tokens[t.Token], pos)
	}

	idx.meta.EntryCount = len(idx.entries)
	return idx, nil
}

func parseMeta(m map[string]string) (Meta, error) {
	meta := Meta{
		BaseURL:      m[metaBaseURL],
		SourceDigest: m[metaSourceDigest],
	}

	if meta.BaseURL == "" {
		return Meta{}, fmt.Errorf("%w: missing %s", ErrCorruptIndex, metaBaseURL)
	}

	if v, ok := m[metaSchemaVersion]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Meta{}, fmt.Errorf("%w: invalid %s %q", ErrCorruptIndex, metaSchemaVersion, v)
		}
		if n > SchemaVersion {
			slog.Warn("index written by a newer schema", "version", n, "supported", SchemaVersion)
		}
		meta.SchemaVersion = n
	}

	if v, ok := m[metaBuiltAt]; ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Meta{}, fmt.Errorf("%w: invalid %s %q", ErrCorruptIndex, metaBuiltAt, v)
		}
		meta.BuiltAt = t
	}

	return meta, nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func removeArtifact(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		os.Remove(p)
	}
}
