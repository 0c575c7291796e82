package input

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/clauseguard/internal/extract"
	"github.com/ppiankov/clauseguard/internal/extract/adapters"
	"github.com/ppiankov/clauseguard/internal/util"
)

// ErrDisallowedByRobots is returned when robots.txt forbids fetching a URL
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// fetchSleepFunc is the sleep function used between retries (replaceable in tests)
var fetchSleepFunc = time.Sleep

const fetchAttempts = 3

// Throttle delays requests to the same host
type Throttle interface {
	WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error
}

// Fetcher downloads web pages (terms of service, privacy policies) and
// reduces them to plain text
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	throttle   Throttle
	registry   *adapters.Registry
	log        *slog.Logger
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
	}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		registry:  adapters.NewRegistry(),
		log:       slog.Default(),
	}
}

// HTTPClient exposes the fetcher's client so robots.txt uses the same transport
func (f *Fetcher) HTTPClient() *http.Client {
	return f.httpClient
}

// WithRobots enables robots.txt checks
func (f *Fetcher) WithRobots(r *util.RobotsChecker) *Fetcher {
	f.robots = r
	return f
}

// WithThrottle spaces out requests per host, honoring crawl delays
func (f *Fetcher) WithThrottle(t Throttle) *Fetcher {
	f.throttle = t
	return f
}

// WithLogger sets the logger
func (f *Fetcher) WithLogger(log *slog.Logger) *Fetcher {
	if log != nil {
		f.log = log
	}
	return f
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body        string
	ContentType string
	StatusCode  int
	FinalURL    string
}

// Page is a fetched web page reduced to document text
type Page struct {
	URL      string
	FinalURL string
	Title    string
	Text     string
	Adapter  string
}

// FetchPage fetches rawURL (robots.txt and throttle permitting) and
// extracts its document text
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: want http(s)://host/path", rawURL)
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowedByRobots, rawURL)
		}
		crawlDelay = delay
	}

	if f.throttle != nil {
		if err := f.throttle.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return nil, err
		}
	}

	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	page := &Page{URL: rawURL, FinalURL: result.FinalURL}

	mediaType, _, _ := mime.ParseMediaType(result.ContentType)
	switch {
	case mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml":
		adapter := f.registry.FindAdapter(result.FinalURL, mediaType)
		doc, err := extract.Parse(result.Body)
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		extracted, err := adapter.Extract(doc, result.FinalURL)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", adapter.Name(), err)
		}
		page.Title = extracted.Title
		page.Text = extracted.Text
		page.Adapter = adapter.Name()
	case mediaType == MimeText:
		page.Text = strings.TrimSpace(result.Body)
		page.Adapter = "plain"
	default:
		return nil, fmt.Errorf("%w: %s serves %s", ErrUnsupportedType, rawURL, mediaType)
	}

	if strings.TrimSpace(page.Text) == "" {
		return nil, fmt.Errorf("%w: no readable text at %s", ErrEmptyDocument, rawURL)
	}

	f.log.Debug("page extracted", "url", page.FinalURL, "adapter", page.Adapter, "chars", len(page.Text))
	return page, nil
}

// FetchWithRetry calls Fetch, retrying transient failures with backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1)) * time.Second
			f.log.Debug("retrying fetch", "url", rawURL, "attempt", attempt+1, "delay", delay, "error", lastErr)
			fetchSleepFunc(delay)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// Fetch retrieves the content at rawURL in a single attempt
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError reports whether a fetch error is transient
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if strings.HasPrefix(msg, "unexpected status: ") {
		for _, code := range []string{"429", "500", "502", "503", "504"} {
			if strings.HasPrefix(msg, "unexpected status: "+code) {
				return true
			}
		}
		return false
	}

	return strings.HasPrefix(msg, "fetch: ")
}
