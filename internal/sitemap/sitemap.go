// Package sitemap downloads the SciencePedia keyword listings and extracts
// concept slugs from them.
package sitemap

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/abdulachik/sciencepedia/internal/concept"
	"github.com/klauspost/compress/gzip"
	"github.com/panjf2000/ants/v2"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultWorkers   = 4
	defaultUserAgent = "sciencepedia-lookup/1.0"
)

var (
	// ErrSourceUnavailable is returned when a listing cannot be retrieved.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrParseError is returned when a listing is not in the expected shape.
	ErrParseError = errors.New("unexpected listing format")
)

// DefaultURLs returns the four keyword sitemaps published on the Bohrium CDN.
func DefaultURLs() []string {
	urls := make([]string, 0, 4)
	for i := 1; i <= 4; i++ {
		urls = append(urls, fmt.Sprintf(
			"https://cdn.bohrium.com/bohrium/web/static/sitemap/sp-tools/sitemap_keyword_%d.xml", i))
	}
	return urls
}

// Fetcher downloads keyword listings.
type Fetcher struct {
	httpClient *http.Client
	urls       []string
	workers    int
	userAgent  string
	logger     *slog.Logger
}

// Config holds configuration for the Fetcher.
type Config struct {
	URLs       []string      // Listing URLs (default: DefaultURLs)
	Timeout    time.Duration // Per-request timeout (default: 60s)
	Workers    int           // Concurrent downloads (default: 4)
	UserAgent  string
	HTTPClient *http.Client // Optional: overrides Timeout
	Logger     *slog.Logger
}

// New creates a new Fetcher.
func New(cfg Config) *Fetcher {
	urls := cfg.URLs
	if len(urls) == 0 {
		urls = DefaultURLs()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		httpClient: client,
		urls:       urls,
		workers:    workers,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// URLs returns the listing URLs the fetcher reads.
func (f *Fetcher) URLs() []string {
	return f.urls
}

// FetchSlugs downloads every listing and returns the distinct slugs in
// sorted order. Any listing that fails makes the whole fetch fail, so a
// caller never sees a partial catalog.
func (f *Fetcher) FetchSlugs(ctx context.Context) ([]string, error) {
	pool, err := ants.NewPool(f.workers)
	if err != nil {
		return nil, fmt.Errorf("create fetch pool: %w", err)
	}
	defer pool.Release()

	results := make([][]string, len(f.urls))
	errs := make([]error, len(f.urls))

	var wg sync.WaitGroup
	for i, u := range f.urls {
		wg.Add(1)
		idx, listingURL := i, u
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[idx], errs[idx] = f.fetchListing(ctx, listingURL)
		})
		if submitErr != nil {
			wg.Done()
			errs[idx] = fmt.Errorf("submit %s: %w", listingURL, submitErr)
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var slugs []string
	for i, listing := range results {
		f.logger.Info("fetched listing", "url", f.urls[i], "entries", len(listing))
		for _, s := range listing {
			if !seen[s] {
				seen[s] = true
				slugs = append(slugs, s)
			}
		}
	}
	sort.Strings(slugs)

	return slugs, nil
}

func (f *Fetcher) fetchListing(ctx context.Context, listingURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, listingURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, listingURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrSourceUnavailable, listingURL, resp.StatusCode)
	}

	// A transfer cut short is a source failure, not a malformed listing.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrSourceUnavailable, listingURL, err)
	}

	slugs, err := ParseListing(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", listingURL, err)
	}

	f.logger.Debug("parsed listing", "url", listingURL, "entries", len(slugs))
	return slugs, nil
}

// urlSet is the sitemap protocol's root element.
type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// ParseListing reads a sitemap <urlset>, optionally gzip-compressed, and
// returns the keyword slugs in document order. Locations outside the
// keyword path are ignored; a listing without any keyword location is a
// parse error.
func ParseListing(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)

	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrParseError, err)
		}
		defer gz.Close()
		src = gz
	}

	var set urlSet
	if err := xml.NewDecoder(src).Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseError, err)
	}

	slugs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if slug, ok := concept.SlugFromURL(u.Loc); ok {
			slugs = append(slugs, slug)
		}
	}

	if len(slugs) == 0 {
		return nil, fmt.Errorf("%w: no keyword entries in %d locations", ErrParseError, len(set.URLs))
	}

	return slugs, nil
}
