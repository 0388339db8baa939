package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "alldaycal/internal/log"
)

// Source kinds.
const (
	KindICS    = "ics"
	KindCalDAV = "caldav"
)

// Source is one calendar feed.
type Source struct {
	ID   string
	Kind string
	URL  string

	// CalDAV credentials and collection (path or display name).
	Username string
	Password string
	Calendar string
}

// FetchResult contains the outcome of fetching a single source.
type FetchResult struct {
	Source    Source
	Body      []byte // ICS payload (either freshly fetched or from cache)
	FromCache bool   // true if the cached body was reused
}

// Fetcher retrieves the ICS payload of a source. start and end bound the
// events of interest; fetchers of whole feeds may ignore them.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, start, end time.Time) (FetchResult, error)
}

// FetchAll fetches every source in order. Failing sources are logged and
// reported in the joined error; the results hold every source that produced
// a body.
func FetchAll(ctx context.Context, f Fetcher, sources []Source, start, end time.Time) ([]FetchResult, error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error

	for _, src := range sources {
		res, err := f.Fetch(ctx, src, start, end)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			appLog.Error("calendar fetch failed", err, "id", src.ID, "kind", src.Kind, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// Router dispatches each source to the fetcher of its kind.
type Router struct {
	HTTP   Fetcher
	CalDAV Fetcher
}

// NewRouter returns a Router with an HTTP fetcher caching under cacheDir and
// a CalDAV fetcher.
func NewRouter(cacheDir string) *Router {
	return &Router{
		HTTP:   NewHTTPFetcher(cacheDir),
		CalDAV: NewCalDAVFetcher(nil),
	}
}

func (r *Router) Fetch(ctx context.Context, src Source, start, end time.Time) (FetchResult, error) {
	switch src.Kind {
	case KindCalDAV:
		return r.CalDAV.Fetch(ctx, src, start, end)
	case KindICS, "":
		return r.HTTP.Fetch(ctx, src, start, end)
	}
	return FetchResult{}, fmt.Errorf("ics: unknown source kind %q", src.Kind)
}

// cacheEntry holds HTTP cache metadata for a single ICS URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HTTPFetcher fetches ICS subscriptions with conditional requests
// (ETag / Last-Modified) backed by a disk cache.
type HTTPFetcher struct {
	client   *http.Client
	cacheDir string
}

// NewHTTPFetcher creates a fetcher storing one cache directory per URL
// under cacheDir.
func NewHTTPFetcher(cacheDir string) *HTTPFetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// Fetch downloads src.URL. On network errors or non-OK statuses a cached
// body, when present, is returned instead.
func (f *HTTPFetcher) Fetch(ctx context.Context, src Source, _, _ time.Time) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	cachePath := f.cachePathForURL(src.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.ics"))
	fallback := func(reason error) (FetchResult, error) {
		if len(cachedBody) == 0 {
			return FetchResult{}, reason
		}
		appLog.Error("ics fetch failed, using cached body", reason, "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, err
		}
		entry := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, entry, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("ics cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		return fallback(errors.New(resp.Status))
	}
}

func (f *HTTPFetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of a feed URL for logging; private
// feed paths and tokens never reach the logs.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "ics://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
