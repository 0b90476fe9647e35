// Package orchestrator fans out the per-request pipeline (URL analysis,
// redirect crawl, screenshots, TLS and WHOIS lookups) behind a single
// Process call, grounded on original_source/src/api/processor.rs's
// process_request_with_strategy.
package orchestrator

import (
	"context"
	"encoding/base64"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BetterCallFirewall/urlscreen/internal/crawler"
	"github.com/BetterCallFirewall/urlscreen/internal/model"
	"github.com/BetterCallFirewall/urlscreen/internal/screenshot"
	"github.com/BetterCallFirewall/urlscreen/internal/tlsinfo"
	"github.com/BetterCallFirewall/urlscreen/internal/urlanalyzer"
	"github.com/BetterCallFirewall/urlscreen/internal/whois"
)

// Processor runs the full analysis pipeline for a single URL. One
// Processor is shared across every job handled by the worker pool.
type Processor struct {
	log *zap.Logger

	analyzer     *urlanalyzer.Analyzer
	crawler      *crawler.Crawler
	crawlerCfg   *crawler.Config
	taker        *screenshot.Taker
	tlsFetcher   *tlsinfo.Fetcher
	whoisFetcher *whois.Fetcher
}

// New builds a Processor from its component dependencies.
func New(
	log *zap.Logger,
	analyzer *urlanalyzer.Analyzer,
	crw *crawler.Crawler,
	crawlerCfg *crawler.Config,
	taker *screenshot.Taker,
	tlsFetcher *tlsinfo.Fetcher,
	whoisFetcher *whois.Fetcher,
) *Processor {
	return &Processor{
		log:          log,
		analyzer:     analyzer,
		crawler:      crw,
		crawlerCfg:   crawlerCfg,
		taker:        taker,
		tlsFetcher:   tlsFetcher,
		whoisFetcher: whoisFetcher,
	}
}

// Process runs the full pipeline for rawURL: analysis is a hard
// precondition, the origin-side redirect crawl and original screenshot are
// primary (their failure, after the one specified fallback, fails the
// request), and every TLS/WHOIS lookup plus the final-URL screenshot are
// best-effort, leaving their response fields nil on failure.
func (p *Processor) Process(ctx context.Context, rawURL string) (*model.ScreenshotResponse, error) {
	timer := NewTimer()

	parsed, err := Time(timer, "url_parsing", func() (*urlanalyzer.ParsedURL, error) {
		return p.analyzer.Analyze(rawURL)
	})
	if err != nil {
		return nil, err
	}

	resp := model.NewScreenshotResponse(rawURL)
	resp.AnonymizedURL = parsed.AnonymizedURL
	resp.DecodedURL = parsed.DecodedURL
	resp.ReplacementURL = parsed.ReplacementURL
	resp.ReferencedURLs = parsed.Collection.ReferencedURLs
	resp.UniqueDomains = domainList(parsed.Collection.UniqueDomains)
	resp.Identifiers = toModelIdentifiers(parsed.Identifiers)

	originDomain := extractDomain(resp.ReplacementURL)
	baseName := urlToSnakeCase(resp.ReplacementURL)

	redirectResult, originalScreenshot, err := p.processOriginURL(ctx, timer, resp.ReplacementURL, parsed.AnonymizedURL, baseName)
	if err != nil {
		return nil, err
	}

	resp.RedirectChain = redirectResult.Chain
	resp.RedirectHopCount = redirectResult.HopCount
	resp.OriginalScreenshot = originalScreenshot.ImageBase64

	var wg sync.WaitGroup
	var originSSL *model.CertificateInfo
	var originWhois *model.WhoisInfo
	if originDomain != "" {
		wg.Add(2)
		go func() {
			defer wg.Done()
			originSSL = p.bestEffortSSL(ctx, timer, "tls_origin", originDomain)
		}()
		go func() {
			defer wg.Done()
			originWhois = p.bestEffortWhois(ctx, timer, "whois_origin", originDomain)
		}()
	}
	wg.Wait()
	resp.OriginalSSLInfo = originSSL
	resp.OriginalWhoisInfo = originWhois

	finalURL := resp.ReplacementURL
	if len(redirectResult.Chain) > 0 {
		finalURL = redirectResult.Chain[len(redirectResult.Chain)-1]
	}
	resp.FinalURL = finalURL

	if finalURL != resp.ReplacementURL {
		p.processFinalURL(ctx, timer, resp, finalURL, originDomain)
	} else {
		p.log.Debug("final URL matches original, skipping additional processing")
	}

	resp.Status = "success"
	resp.TimingReport = timer.Report()
	return resp, nil
}

// processOriginURL runs the redirect crawl and the original screenshot
// concurrently; both are primary operations, each retried once against
// anonymizedURL if the attempt against replacementURL fails, grounded on
// original_source/src/api/processor.rs's process_original_url.
func (p *Processor) processOriginURL(ctx context.Context, timer *Timer, replacementURL, anonymizedURL, baseName string) (*crawler.Result, *screenshot.Result, error) {
	eg, egCtx := errgroup.WithContext(ctx)

	var redirectResult *crawler.Result
	eg.Go(func() error {
		result, err := Time(timer, "crawl_redirect_chain", func() (*crawler.Result, error) {
			return p.crawlWithFallback(egCtx, replacementURL, anonymizedURL)
		})
		if err != nil {
			return err
		}
		redirectResult = result
		return nil
	})

	var originalScreenshot *screenshot.Result
	eg.Go(func() error {
		result, err := Time(timer, "screenshot_original", func() (*screenshot.Result, error) {
			shot, err := p.taker.Take(egCtx, replacementURL, baseName+"_original")
			if err == nil {
				return shot, nil
			}
			p.log.Warn("original screenshot failed, retrying with fallback URL", zap.String("url", replacementURL), zap.Error(err))
			fallbackShot, fallbackErr := p.taker.Take(egCtx, anonymizedURL, baseName+"_original")
			if fallbackErr != nil {
				p.log.Error("original screenshot failed for both primary and fallback URLs",
					zap.String("url", replacementURL), zap.String("fallback_url", anonymizedURL),
					zap.Error(err), zap.NamedError("fallback_error", fallbackErr))
				return nil, err
			}
			return fallbackShot, nil
		})
		if err != nil {
			return err
		}
		originalScreenshot = result
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return redirectResult, originalScreenshot, nil
}

// crawlWithFallback follows the redirect chain of url, retrying once
// against fallbackURL if the primary crawl fails, mirroring
// BenchmarkedProcessing::get_redirect_chain's one specified fallback.
func (p *Processor) crawlWithFallback(ctx context.Context, startURL, fallbackURL string) (*crawler.Result, error) {
	result, err := p.crawler.CrawlRedirectChain(ctx, startURL, p.crawlerCfg)
	if err == nil {
		return result, nil
	}
	p.log.Warn("redirect crawl failed, retrying with fallback URL", zap.String("url", startURL), zap.Error(err))

	fallbackResult, fallbackErr := p.crawler.CrawlRedirectChain(ctx, fallbackURL, p.crawlerCfg)
	if fallbackErr != nil {
		p.log.Error("redirect crawl failed for both primary and fallback URLs",
			zap.String("url", startURL), zap.String("fallback_url", fallbackURL),
			zap.Error(err), zap.NamedError("fallback_error", fallbackErr))
		return nil, err
	}
	p.log.Warn("recovered redirect chain with fallback URL", zap.String("fallback_url", fallbackURL))
	return fallbackResult, nil
}

// processFinalURL runs SSL/WHOIS lookups (reusing the origin's results when
// the final URL shares its domain) and the final screenshot, all
// best-effort, grounded on process_final_url.
func (p *Processor) processFinalURL(ctx context.Context, timer *Timer, resp *model.ScreenshotResponse, finalURL, originDomain string) {
	finalDomain := extractDomain(finalURL)
	sameDomain := finalDomain != "" && finalDomain == originDomain

	if sameDomain {
		resp.FinalSSLInfo = resp.OriginalSSLInfo
		resp.FinalWhoisInfo = resp.OriginalWhoisInfo
	} else if finalDomain != "" {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			resp.FinalSSLInfo = p.bestEffortSSL(ctx, timer, "tls_final", finalDomain)
		}()
		go func() {
			defer wg.Done()
			resp.FinalWhoisInfo = p.bestEffortWhois(ctx, timer, "whois_final", finalDomain)
		}()
		wg.Wait()
	}

	result, err := Time(timer, "screenshot_final", func() (*screenshot.Result, error) {
		return p.taker.Take(ctx, finalURL, urlToSnakeCase(finalURL)+"_destination")
	})
	if err != nil {
		p.log.Warn("failed to capture screenshot of final URL", zap.String("url", finalURL), zap.Error(err))
		return
	}
	resp.FinalScreenshot = result.ImageBase64
}

func (p *Processor) bestEffortSSL(ctx context.Context, timer *Timer, step, domain string) *model.CertificateInfo {
	info, err := Time(timer, step, func() (*tlsinfo.Info, error) {
		return p.tlsFetcher.Fetch(ctx, domain)
	})
	if err != nil {
		p.log.Warn("failed to retrieve SSL certificate", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	return &model.CertificateInfo{
		Issuer:         info.Issuer,
		Subject:        info.Subject,
		ValidFrom:      info.ValidFrom,
		ValidTo:        info.ValidTo,
		DaysRemaining:  info.DaysRemaining,
		Version:        info.Version,
		SerialNumber:   info.SerialNumber,
		SecurityStatus: info.SecurityStatus,
	}
}

func (p *Processor) bestEffortWhois(ctx context.Context, timer *Timer, step, domain string) *model.WhoisInfo {
	info, err := Time(timer, step, func() (*whois.Result, error) {
		return p.whoisFetcher.Lookup(ctx, domain)
	})
	if err != nil {
		p.log.Warn("failed to retrieve WHOIS information", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	return &model.WhoisInfo{
		Domain:       info.Domain,
		Organisation: info.Organisation,
		Created:      info.Created,
		Changed:      info.Changed,
	}
}

func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func domainList(domains map[string]struct{}) []string {
	list := make([]string, 0, len(domains))
	for d := range domains {
		list = append(list, d)
	}
	return list
}

func toModelIdentifiers(ids []urlanalyzer.Identifier) []model.Identifier {
	out := make([]model.Identifier, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Identifier{
			Value:                   id.Value,
			DecodedValue:            id.DecodedValue,
			ValueClassification:     id.Classification,
			ReplacementValue:        id.AnonymizedValue,
			EncodedReplacementValue: base64.StdEncoding.EncodeToString([]byte(id.AnonymizedValue)),
		})
	}
	return out
}
