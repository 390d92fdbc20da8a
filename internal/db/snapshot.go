package db

import (
	"context"
	"fmt"
	"sort"
)

// Snapshot is the full row set of an index artifact.
type Snapshot struct {
	Concepts []Concept
	Names    []ConceptName
	Tokens   []ConceptToken
	Meta     map[string]string
}

// WriteSnapshot inserts a complete snapshot in a single transaction.
// The store is expected to be freshly migrated and empty.
func (s *Store) WriteSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := writeSnapshot(ctx, s.Queries.WithTx(tx), snap); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, q *Queries, snap *Snapshot) error {
	for _, c := range snap.Concepts {
		if err := q.InsertConcept(ctx, c); err != nil {
			return fmt.Errorf("insert concept %s: %w", c.Slug, err)
		}
	}

	for _, n := range snap.Names {
		if err := q.InsertConceptName(ctx, n); err != nil {
			return fmt.Errorf("insert name %q: %w", n.NameKey, err)
		}
	}

	for _, t := range snap.Tokens {
		if err := q.InsertConceptToken(ctx, t); err != nil {
			return fmt.Errorf("insert token %q: %w", t.Token, err)
		}
	}

	keys := make([]string, 0, len(snap.Meta))
	for k := range snap.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := q.SetMeta(ctx, k, snap.Meta[k]); err != nil {
			return fmt.Errorf("set meta %s: %w", k, err)
		}
	}

	return nil
}

// ReadSnapshot loads every row of the index artifact.
func (s *Store) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	concepts, err := s.ListConcepts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}

	names, err := s.ListConceptNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}

	tokens, err := s.ListConceptTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	meta, err := s.ListMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("list meta: %w", err)
	}

	return &Snapshot{
		Concepts: concepts,
		Names:    names,
		Tokens:   tokens,
		Meta:     meta,
	}, nil
}
