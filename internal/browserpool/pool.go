// Package browserpool manages a bounded pool of headless-browser sessions,
// grounded on original_source/src/screenshot/pool.rs's ConnectionPool, using
// chromedp tab contexts (the Go-native analog of the original's WebDriver
// client sessions), itself grounded on
// other_examples' EdgeComet-engine chrome renderer.
package browserpool

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
)

const (
	minConnections = 2
	// MaxSessions is the hard ceiling on concurrent browser sessions,
	// independent of worker count.
	MaxSessions    = 10
	scaleInterval  = 60 * time.Second
	maxClientAge   = time.Hour
	acquireTimeout = 10 * time.Second
)

// Session is one pooled browser tab, ready to navigate and capture.
type Session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	createdAt time.Time
}

// Context returns the chromedp execution context for this session.
func (s *Session) Context() context.Context { return s.ctx }

// Pool manages a set of chromedp browser-tab sessions with admission
// control, aging and throttled scaling, analogous to a connection pool
// over WebDriver clients.
type Pool struct {
	log *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	viewportWidth  int64
	viewportHeight int64
	maxConnections int64

	idle *list.List // of *Session, oldest at front
	mu   sync.Mutex

	sem *semaphore.Weighted

	activeConnections atomic.Int64
	totalConnections  atomic.Int64

	lastScaleTime time.Time
	scaleMu       sync.Mutex
}

// New builds and warms a Pool. webdriverURL, when non-empty, is treated as
// a remote Chrome DevTools Protocol debugger address and the pool attaches
// to it instead of launching a local headless Chrome process.
func New(ctx context.Context, log *zap.Logger, webdriverURL string, viewportWidth, viewportHeight int, headless bool, maxConnections int) (*Pool, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc

	if webdriverURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, webdriverURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	p := &Pool{
		log:            log,
		allocCtx:       allocCtx,
		allocCancel:    allocCancel,
		viewportWidth:  int64(viewportWidth),
		viewportHeight: int64(viewportHeight),
		maxConnections: int64(maxConnections),
		idle:           list.New(),
		sem:            semaphore.NewWeighted(int64(maxConnections)),
		lastScaleTime:  time.Now(),
	}

	for i := 0; i < minConnections; i++ {
		session, err := p.newSession()
		if err != nil {
			log.Warn("failed to create initial browser session", zap.Int("attempt", i+1), zap.Error(err))
			continue
		}
		p.idle.PushBack(session)
		p.totalConnections.Add(1)
	}

	log.Info("browser pool initialized", zap.Int64("initial_connections", p.totalConnections.Load()))
	return p, nil
}

func (p *Pool) newSession() (*Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(p.allocCtx)
	if err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(p.viewportWidth, p.viewportHeight),
	); err != nil {
		tabCancel()
		return nil, apierr.Wrap(apierr.KindBrowserAcquire, "failed to start browser session", err)
	}
	return &Session{ctx: tabCtx, cancel: tabCancel, createdAt: time.Now()}, nil
}

// Acquire returns a session from the pool, creating one on demand,
// replacing aged-out sessions, and throttling a background scale check.
// It does not health-check the session; AcquireHealthy does.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		return nil, apierr.Wrap(apierr.KindBrowserAcquire, "timeout waiting for available browser session", err)
	}

	p.mu.Lock()
	var session *Session
	if front := p.idle.Front(); front != nil {
		session = p.idle.Remove(front).(*Session)
	}
	p.mu.Unlock()

	if session != nil && time.Since(session.createdAt) > maxClientAge {
		p.log.Debug("discarding aged browser session", zap.Duration("age", time.Since(session.createdAt)))
		session.cancel()
		p.totalConnections.Add(-1)
		session = nil
	}

	if session == nil {
		fresh, err := p.newSession()
		if err != nil {
			p.sem.Release(1)
			return nil, err
		}
		session = fresh
		p.totalConnections.Add(1)
	}

	p.activeConnections.Add(1)
	p.maybeScaleInBackground()

	return session, nil
}

// Release returns a session to the idle pool for reuse.
func (p *Pool) Release(s *Session) {
	p.mu.Lock()
	p.idle.PushBack(s)
	p.mu.Unlock()

	p.sem.Release(1)
	p.activeConnections.Add(-1)
}

// Discard closes a session known to be unhealthy instead of returning it
// to the pool.
func (p *Pool) Discard(s *Session) {
	s.cancel()
	p.totalConnections.Add(-1)
	p.sem.Release(1)
	p.activeConnections.Add(-1)
}

// Stats is the point-in-time pool utilization, surfaced on /health.
type Stats struct {
	Active int64
	Total  int64
}

// Stats returns the current active/total connection counts.
func (p *Pool) Stats() Stats {
	return Stats{Active: p.activeConnections.Load(), Total: p.totalConnections.Load()}
}

// maybeScaleInBackground checks whether enough time has passed since the
// last scaling decision and, if so, launches one in the background,
// throttled to at most once per scaleInterval.
func (p *Pool) maybeScaleInBackground() {
	p.scaleMu.Lock()
	should := time.Since(p.lastScaleTime) >= scaleInterval
	if should {
		p.lastScaleTime = time.Now()
	}
	p.scaleMu.Unlock()

	if should {
		go p.scale()
	}
}

func (p *Pool) scale() {
	active := p.activeConnections.Load()
	total := p.totalConnections.Load()
	if total == 0 {
		return
	}

	usagePercent := float64(active) * 100.0 / float64(total)

	switch {
	case usagePercent > 80.0 && total < p.maxConnections:
		session, err := p.newSession()
		if err != nil {
			p.log.Warn("failed to scale up browser pool", zap.Error(err))
			return
		}
		p.mu.Lock()
		p.idle.PushBack(session)
		p.mu.Unlock()
		p.totalConnections.Add(1)
		p.log.Info("scaled up browser pool", zap.Int64("total", total+1))

	case usagePercent < 20.0 && total > minConnections:
		p.mu.Lock()
		back := p.idle.Back()
		var victim *Session
		if back != nil {
			victim = p.idle.Remove(back).(*Session)
		}
		p.mu.Unlock()
		if victim != nil {
			victim.cancel()
			p.totalConnections.Add(-1)
			p.log.Info("scaled down browser pool", zap.Int64("total", total-1))
		}
	}
}

// Close tears down every pooled session and the underlying allocator.
func (p *Pool) Close() {
	p.mu.Lock()
	for e := p.idle.Front(); e != nil; e = e.Next() {
		e.Value.(*Session).cancel()
	}
	p.idle.Init()
	p.mu.Unlock()

	p.allocCancel()
	p.activeConnections.Store(0)
	p.totalConnections.Store(0)
	p.log.Info("browser pool shutdown complete")
}

// IsHealthy runs a cheap DOM-readiness check against the session by
// probing document.readyState.
func (p *Pool) IsHealthy(s *Session) bool {
	checkCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	var readyState string
	err := chromedp.Run(checkCtx, chromedp.Evaluate(`document.readyState`, &readyState))
	if err != nil {
		p.log.Debug("browser session failed health check", zap.Error(err))
		return false
	}
	return true
}

// AcquireHealthy is Acquire followed by a health check, discarding and
// retrying once on failure — mirroring get_healthy_client.
func (p *Pool) AcquireHealthy(ctx context.Context) (*Session, error) {
	session, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if p.IsHealthy(session) {
		return session, nil
	}

	p.log.Debug("discarding unhealthy browser session, retrying")
	p.Discard(session)
	return p.Acquire(ctx)
}
