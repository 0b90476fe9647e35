// Package screenshot captures rendered pages via a pooled browser session,
// grounded on original_source/src/screenshot/taker.rs.
package screenshot

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
	"github.com/BetterCallFirewall/urlscreen/internal/browserpool"
)

const (
	maxRetries        = 3
	retryDelay        = 2 * time.Second
	renderSettleDelay = 500 * time.Millisecond
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename strips characters unsafe for a filesystem path.
func sanitizeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "screenshot"
	}
	return cleaned
}

// Result is a captured screenshot: the path it was persisted to on disk,
// its raw PNG bytes, and a base64 encoding of those bytes for inclusion in
// an API response.
type Result struct {
	FilePath    string
	ImageBytes  []byte
	ImageBase64 string
}

// Taker captures screenshots of web pages using a pooled browser session,
// retrying transient failures.
type Taker struct {
	log           *zap.Logger
	screenshotDir string
	pool          *browserpool.Pool
}

// New builds a Taker, creating the screenshot directory if needed.
func New(log *zap.Logger, screenshotDir string, pool *browserpool.Pool) (*Taker, error) {
	if err := os.MkdirAll(screenshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory %s: %w", screenshotDir, err)
	}
	return &Taker{log: log, screenshotDir: screenshotDir, pool: pool}, nil
}

// Take captures a screenshot of url, making up to maxRetries attempts in
// total on failure, discarding the browser session between attempts so a broken one
// is never reused.
func (t *Taker) Take(ctx context.Context, url, baseName string) (*Result, error) {
	t.log.Info("taking screenshot", zap.String("url", url))

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, apierr.Wrap(apierr.KindWorkerCancelled, "screenshot operation cancelled", ctx.Err())
		}

		t.log.Debug("screenshot attempt", zap.Int("attempt", attempt+1), zap.Int("max_retries", maxRetries))

		session, err := t.pool.AcquireHealthy(ctx)
		if err != nil {
			return nil, apierr.Wrap(apierr.KindBrowserAcquire, "failed to acquire browser session", err)
		}

		result, err := t.captureWithSession(session, url, baseName)
		if err == nil {
			t.pool.Release(session)
			t.log.Info("screenshot captured", zap.String("url", url), zap.String("file", result.FilePath))
			return result, nil
		}

		t.log.Warn("screenshot attempt failed", zap.String("url", url), zap.Error(err))
		t.pool.Discard(session)
		lastErr = err

		if attempt+1 < maxRetries {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, apierr.Wrap(apierr.KindWorkerCancelled, "screenshot cancelled during retry wait", ctx.Err())
			}
		}
	}

	return nil, apierr.Wrap(apierr.KindBrowserNavigate, fmt.Sprintf("failed to capture screenshot of %s after %d attempts", url, maxRetries), lastErr)
}

func (t *Taker) captureWithSession(session *browserpool.Session, url, baseName string) (*Result, error) {
	var buf []byte

	navCtx, cancel := context.WithTimeout(session.Context(), 30*time.Second)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(renderSettleDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, err := page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				Do(ctx)
			if err != nil {
				return err
			}
			buf = data
			return nil
		}),
	)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindBrowserNavigate, "failed to navigate or capture screenshot for "+url, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	fileName := fmt.Sprintf("%s_%s.png", sanitizeFilename(baseName), timestamp)
	filePath := filepath.Join(t.screenshotDir, fileName)

	if err := os.WriteFile(filePath, buf, 0o644); err != nil {
		return nil, apierr.Wrap(apierr.KindScreenshotWrite, "failed to write screenshot to "+filePath, err)
	}

	return &Result{
		FilePath:    filePath,
		ImageBytes:  buf,
		ImageBase64: base64.StdEncoding.EncodeToString(buf),
	}, nil
}
