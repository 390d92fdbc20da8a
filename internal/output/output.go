// Package output renders resolved queries for the command line.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/abdulachik/sciencepedia/internal/resolver"
)

// Format selects how results are written.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ErrUnknownFormat is returned for an unsupported output format name.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (want json or text)", ErrUnknownFormat, s)
	}
}

// Write renders results in the given format.
func Write(w io.Writer, format Format, results []resolver.MatchResult) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatText:
		return WriteText(w, results)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// record is the wire form of a candidate.
type record struct {
	Slug      string  `json:"slug"`
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	MatchType string  `json:"match_type"`
	Score     float64 `json:"score"`
}

// Document is the JSON result document: an object keyed by query, in the
// order the queries were given. A repeated query keeps the position and
// result of its first occurrence.
type Document struct {
	queries []string
	results map[string][]record
}

// NewDocument builds a document from results.
func NewDocument(results []resolver.MatchResult) *Document {
	d := &Document{results: make(map[string][]record, len(results))}
	for _, res := range results {
		if _, ok := d.results[res.Query]; ok {
			continue
		}
		recs := make([]record, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			recs = append(recs, record{
				Slug:      c.Slug,
				Name:      c.Name,
				URL:       c.URL,
				MatchType: string(c.MatchType),
				Score:     roundScore(c.Score),
			})
		}
		d.queries = append(d.queries, res.Query)
		d.results[res.Query] = recs
	}
	return d
}

// Queries returns the distinct queries in document order.
func (d *Document) Queries() []string {
	return d.queries
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, q := range d.queries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeCompact(&buf, q); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeCompact(&buf, d.results[q]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeCompact(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// WriteJSON writes results as an indented JSON document followed by a
// newline.
func WriteJSON(w io.Writer, results []resolver.MatchResult) error {
	raw, err := NewDocument(results).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("indent results: %w", err)
	}
	out.WriteByte('\n')

	_, err = w.Write(out.Bytes())
	return err
}

// roundScore rounds to three decimal places.
func roundScore(s float64) float64 {
	return math.Round(s*1000) / 1000
}
