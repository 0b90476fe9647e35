package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
)

// Result is the outcome of following a redirect chain: every URL visited,
// in order, and the number of hops taken.
type Result struct {
	Chain    []string
	HopCount int
}

// Crawler manually follows redirect chains without relying on the HTTP
// client's own redirect handling, the way
// original_source/src/url_crawler/mod.rs's crawl_redirect_chain_with_config
// drives reqwest with redirect::Policy::none().
type Crawler struct {
	log *zap.Logger
}

// New builds a Crawler.
func New(log *zap.Logger) *Crawler {
	return &Crawler{log: log}
}

func (c *Crawler) newHTTPClient(cfg *Config) *http.Client {
	return &http.Client{
		Timeout: cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Transport: &http.Transport{
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			IdleConnTimeout:       cfg.PoolIdleTimeout,
			MaxIdleConnsPerHost:   cfg.PoolMaxIdlePerHost,
			ResponseHeaderTimeout: cfg.RequestTimeout,
		},
	}
}

// CrawlRedirectChain follows redirects from startURL according to cfg,
// returning the full chain of visited URLs and the hop count.
func (c *Crawler) CrawlRedirectChain(ctx context.Context, startURL string, cfg *Config) (*Result, error) {
	if startURL == "" {
		return nil, apierr.New(apierr.KindInvalidURL, "URL cannot be empty")
	}
	if len(startURL) > cfg.MaxURLLength {
		return nil, apierr.New(apierr.KindInvalidURL, "URL exceeds maximum length")
	}

	startParsed, err := url.Parse(startURL)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidURL, "failed to parse URL", err)
	}
	if !cfg.schemeAllowed(startParsed.Scheme) {
		return nil, apierr.New(apierr.KindRedirectSchemeDenied, fmt.Sprintf("scheme %q is not allowed", startParsed.Scheme))
	}

	client := c.newHTTPClient(cfg)

	chain := make([]string, 0, cfg.MaxHops+1)
	visited := make(map[string]struct{}, cfg.MaxHops+1)
	currentURL := startURL
	hops := 0

	for {
		if _, seen := visited[currentURL]; seen {
			c.log.Warn("redirect loop detected", zap.String("url", currentURL))
			break
		}
		visited[currentURL] = struct{}{}

		c.log.Info("crawling", zap.String("url", currentURL), zap.Int("hop", hops+1), zap.Int("max_hops", cfg.MaxHops))
		chain = append(chain, currentURL)

		if hops > 0 {
			select {
			case <-time.After(cfg.RateLimitDelay):
			case <-ctx.Done():
				return nil, apierr.Wrap(apierr.KindRequestTimeout, "crawl cancelled during rate-limit wait", ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, currentURL, nil)
		if err != nil {
			return nil, apierr.Wrap(apierr.KindUpstreamTransport, "failed to build request", err)
		}
		req.Header.Set("User-Agent", cfg.UserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return nil, apierr.Wrap(apierr.KindUpstreamTransport, "failed to send request to "+currentURL, err)
		}

		status := resp.StatusCode
		isRedirect := status >= 300 && status < 400 && status != http.StatusNotModified

		if isRedirect {
			next, ok := c.resolveRedirectTarget(resp, currentURL)
			resp.Body.Close()
			if !ok {
				break
			}

			if hops >= cfg.MaxHops {
				c.log.Warn("max redirect hops reached", zap.String("url", currentURL))
				break
			}

			nextURL, err := resolveNextURL(currentURL, next)
			if err != nil {
				return nil, apierr.Wrap(apierr.KindInvalidURL, "failed to resolve redirect URL", err)
			}

			nextParsed, err := url.Parse(nextURL)
			if err != nil {
				return nil, apierr.Wrap(apierr.KindInvalidURL, "failed to parse redirect URL", err)
			}
			if !cfg.schemeAllowed(nextParsed.Scheme) {
				c.log.Warn("redirect to disallowed scheme", zap.String("scheme", nextParsed.Scheme))
				break
			}
			if cfg.FollowHostnameRedirectsOnly && nextParsed.Hostname() != startParsed.Hostname() {
				c.log.Warn("cross-host redirect denied", zap.String("from", startParsed.Hostname()), zap.String("to", nextParsed.Hostname()))
				break
			}

			currentURL = nextURL
			hops++
			continue
		}

		if status == http.StatusOK && cfg.DetectMetaRefresh && strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			resp.Body.Close()
			if readErr == nil {
				if target, found := detectClientRedirect(string(body)); found && hops < cfg.MaxHops {
					nextURL, err := resolveNextURL(currentURL, target)
					if err == nil {
						if nextParsed, err := url.Parse(nextURL); err == nil && cfg.schemeAllowed(nextParsed.Scheme) {
							if !cfg.FollowHostnameRedirectsOnly || nextParsed.Hostname() == startParsed.Hostname() {
								currentURL = nextURL
								hops++
								continue
							}
						}
					}
				}
			}
			break
		}

		resp.Body.Close()
		break
	}

	c.log.Info("crawl complete", zap.Int("chain_length", len(chain)), zap.Int("hops", hops))
	return &Result{Chain: chain, HopCount: hops}, nil
}

// resolveRedirectTarget extracts the redirect target from resp, falling
// back to httpbin.org/redirect-to's "url" query parameter when no Location
// header is present, exactly as
// original_source/src/url_crawler/mod.rs does.
func (c *Crawler) resolveRedirectTarget(resp *http.Response, currentURL string) (string, bool) {
	if location := resp.Header.Get("Location"); location != "" {
		return location, true
	}

	if strings.Contains(currentURL, "httpbin.org/redirect-to") {
		if parsed, err := url.Parse(currentURL); err == nil {
			if target := parsed.Query().Get("url"); target != "" {
				c.log.Debug("extracted redirect URL from httpbin query param", zap.String("url", target))
				return target, true
			}
		}
	}

	c.log.Warn("redirect status without Location header", zap.String("url", currentURL), zap.Int("status", resp.StatusCode))
	return "", false
}

func resolveNextURL(currentURL, location string) (string, error) {
	if strings.HasPrefix(location, "http") {
		return location, nil
	}
	base, err := url.Parse(currentURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// CrawlMany crawls urls concurrently, bounded by maxConcurrent, preserving
// input order in the returned slice. Grounded on
// original_source/src/url_crawler/mod.rs's crawl_multiple_urls.
func (c *Crawler) CrawlMany(ctx context.Context, urls []string, cfg *Config, maxConcurrent int64) ([]*Result, []error) {
	results := make([]*Result, len(urls))
	errs := make([]error, len(urls))

	if len(urls) == 0 {
		return results, errs
	}

	sem := semaphore.NewWeighted(maxConcurrent)
	done := make(chan struct{})

	for i, u := range urls {
		go func(i int, u string) {
			defer func() { done <- struct{}{} }()
			if err := sem.Acquire(ctx, 1); err != nil {
				errs[i] = apierr.Wrap(apierr.KindWorkerCancelled, "failed to acquire crawl slot", err)
				return
			}
			defer sem.Release(1)

			result, err := c.CrawlRedirectChain(ctx, u, cfg)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = result
		}(i, u)
	}

	for range urls {
		<-done
	}

	return results, errs
}
