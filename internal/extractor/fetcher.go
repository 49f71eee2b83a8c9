package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"auctionhub/internal/config"
)

// DocumentFetcher loads and parses one HTML page.
type DocumentFetcher interface {
	Document(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// HTTPError is a non-200 listing response.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Status)
}

func (e *HTTPError) Unwrap() error { return ErrTransport }

type Fetcher struct {
	httpClient    *http.Client
	userAgent     string
	maxBodyBytes  int64
	respectRobots bool
	logger        *zap.Logger

	mu     sync.Mutex
	robots map[string]*robotstxt.Group
}

func NewFetcher(cfg config.HTTPConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 10 * time.Second
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 3
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return NewFetcherWithClient(client, cfg, logger)
}

// NewFetcherWithClient is used by tests to point at an httptest server.
func NewFetcherWithClient(client *http.Client, cfg config.HTTPConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "Mozilla/5.0 (compatible; AuctionHubBot/1.0)"
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 8 << 20
	}
	return &Fetcher{
		httpClient:    client,
		userAgent:     ua,
		maxBodyBytes:  maxBody,
		respectRobots: cfg.RespectRobots,
		logger:        logger,
		robots:        map[string]*robotstxt.Group{},
	}
}

func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if f.respectRobots && !f.allowed(ctx, u) {
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: GET %s: %v", ErrTransport, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPError{Status: resp.StatusCode, URL: rawURL}
	}

	body := io.LimitReader(resp.Body, f.maxBodyBytes)
	utf8Reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = body
	}
	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, rawURL, err)
	}
	return doc, nil
}

// allowed consults robots.txt once per host; an unreachable robots.txt allows everything.
func (f *Fetcher) allowed(ctx context.Context, u *url.URL) bool {
	host := u.Scheme + "://" + u.Host

	f.mu.Lock()
	group, seen := f.robots[host]
	f.mu.Unlock()

	if !seen {
		group = f.loadRobots(ctx, host)
		f.mu.Lock()
		f.robots[host] = group
		f.mu.Unlock()
	}
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (f *Fetcher) loadRobots(ctx context.Context, host string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("robots.txt unavailable", zap.String("host", host), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		f.logger.Debug("robots.txt unparsable", zap.String("host", host), zap.Error(err))
		return nil
	}
	return data.FindGroup(f.userAgent)
}

// IsRetryable reports whether err is a transport failure worth one more attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport)
}
