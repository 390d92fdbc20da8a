package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New returns queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the typed statements against the index schema.
type Queries struct {
	db DBTX
}

// WithTx returns a copy of the queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Concept is a row of the concepts table.
type Concept struct {
	Slug string
	Name string
	Url  string
}

// ConceptName is a row of the concept_names table.
type ConceptName struct {
	NameKey string
	Slug    string
}

// ConceptToken is a row of the concept_tokens table.
type ConceptToken struct {
	Token string
	Slug  string
}

const insertConcept = `INSERT INTO concepts (slug, name, url) VALUES (?, ?, ?)`

// InsertConcept adds a single concept row.
func (q *Queries) InsertConcept(ctx context.Context, arg Concept) error {
	_, err := q.db.ExecContext(ctx, insertConcept, arg.Slug, arg.Name, arg.Url)
	return err
}

const insertConceptName = `INSERT INTO concept_names (name_key, slug) VALUES (?, ?)`

// InsertConceptName adds a folded-name row.
func (q *Queries) InsertConceptName(ctx context.Context, arg ConceptName) error {
	_, err := q.db.ExecContext(ctx, insertConceptName, arg.NameKey, arg.Slug)
	return err
}

const insertConceptToken = `INSERT INTO concept_tokens (token, slug) VALUES (?, ?)`

// InsertConceptToken adds a token posting row.
func (q *Queries) InsertConceptToken(ctx context.Context, arg ConceptToken) error {
	_, err := q.db.ExecContext(ctx, insertConceptToken, arg.Token, arg.Slug)
	return err
}

const getConcept = `SELECT slug, name, url FROM concepts WHERE slug = ?`

// GetConcept returns one concept by slug.
func (q *Queries) GetConcept(ctx context.Context, slug string) (Concept, error) {
	var c Concept
	err := q.db.QueryRowContext(ctx, getConcept, slug).Scan(&c.Slug, &c.Name, &c.Url)
	return c, err
}

const listConcepts = `SELECT slug, name, url FROM concepts ORDER BY slug`

// ListConcepts returns every concept ordered by slug.
func (q *Queries) ListConcepts(ctx context.Context) ([]Concept, error) {
	rows, err := q.db.QueryContext(ctx, listConcepts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Concept
	for rows.Next() {
		var c Concept
		if err := rows.Scan(&c.Slug, &c.Name, &c.Url); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listConceptNames = `SELECT name_key, slug FROM concept_names ORDER BY name_key`

// ListConceptNames returns every folded-name row ordered by key.
func (q *Queries) ListConceptNames(ctx context.Context) ([]ConceptName, error) {
	rows, err := q.db.QueryContext(ctx, listConceptNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ConceptName
	for rows.Next() {
		var n ConceptName
		if err := rows.Scan(&n.NameKey, &n.Slug); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listConceptTokens = `SELECT token, slug FROM concept_tokens ORDER BY token, slug`

// ListConceptTokens returns every token posting ordered by token then slug.
func (q *Queries) ListConceptTokens(ctx context.Context) ([]ConceptToken, error) {
	rows, err := q.db.QueryContext(ctx, listConceptTokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ConceptToken
	for rows.Next() {
		var t ConceptToken
		if err := rows.Scan(&t.Token, &t.Slug); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countConcepts = `SELECT COUNT(*) FROM concepts`

// CountConcepts returns the number of concepts.
func (q *Queries) CountConcepts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countConcepts).Scan(&count)
	return count, err
}

const countDistinctTokens = `SELECT COUNT(DISTINCT token) FROM concept_tokens`

// CountDistinctTokens returns the number of distinct tokens in the token index.
func (q *Queries) CountDistinctTokens(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countDistinctTokens).Scan(&count)
	return count, err
}

const setMeta = `INSERT INTO index_meta (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

// SetMeta upserts a metadata value.
func (q *Queries) SetMeta(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, setMeta, key, value)
	return err
}

const getMeta = `SELECT value FROM index_meta WHERE key = ?`

// GetMeta returns a metadata value; sql.ErrNoRows if unset.
func (q *Queries) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getMeta, key).Scan(&value)
	return value, err
}

const listMeta = `SELECT key, value FROM index_meta ORDER BY key`

// ListMeta returns all metadata as a map.
func (q *Queries) ListMeta(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, listMeta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meta, nil
}
