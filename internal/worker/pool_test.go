package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
	"github.com/BetterCallFirewall/urlscreen/internal/model"
)

type fakeProcessor struct {
	delay  time.Duration
	err    error
	result *model.ScreenshotResponse
}

func (f *fakeProcessor) Process(ctx context.Context, url string) (*model.ScreenshotResponse, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestPoolProcessesEnqueuedJob(t *testing.T) {
	want := model.NewScreenshotResponse("https://example.com")
	pool := New(zap.NewNop(), &fakeProcessor{result: want}, 2, 4, time.Second)
	defer func() { _ = pool.Shutdown(context.Background()) }()

	responseCh := make(chan Outcome, 1)
	require.NoError(t, pool.Enqueue(context.Background(), Job{URL: "https://example.com", Response: responseCh}))

	select {
	case outcome := <-responseCh:
		require.NoError(t, outcome.Err)
		assert.Equal(t, want, outcome.Response)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job outcome")
	}
}

func TestPoolRecordsFailureMetrics(t *testing.T) {
	pool := New(zap.NewNop(), &fakeProcessor{err: errors.New("boom")}, 1, 4, time.Second)
	defer func() { _ = pool.Shutdown(context.Background()) }()

	responseCh := make(chan Outcome, 1)
	require.NoError(t, pool.Enqueue(context.Background(), Job{URL: "https://example.com", Response: responseCh}))

	<-responseCh
	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.JobsFailed)
	assert.Equal(t, int64(0), stats.JobsProcessed)
}

func TestPoolJobTimeoutReportsWorkerCancelled(t *testing.T) {
	pool := New(zap.NewNop(), &fakeProcessor{delay: 50 * time.Millisecond}, 1, 4, 5*time.Millisecond)
	defer func() { _ = pool.Shutdown(context.Background()) }()

	responseCh := make(chan Outcome, 1)
	require.NoError(t, pool.Enqueue(context.Background(), Job{URL: "https://example.com", Response: responseCh}))

	outcome := <-responseCh
	require.Error(t, outcome.Err)
	assert.Equal(t, apierr.KindWorkerCancelled, apierr.KindOf(outcome.Err))
}

func TestEnqueueAfterShutdownReturnsServiceUnavailable(t *testing.T) {
	pool := New(zap.NewNop(), &fakeProcessor{result: model.NewScreenshotResponse("x")}, 1, 1, time.Second)
	require.NoError(t, pool.Shutdown(context.Background()))

	err := pool.Enqueue(context.Background(), Job{URL: "https://example.com", Response: make(chan Outcome, 1)})
	require.Error(t, err)
	assert.Equal(t, apierr.KindServiceUnavailable, apierr.KindOf(err))
}

func TestEnqueueRejectsWhenQueueFull(t *testing.T) {
	// A pool with zero workers never drains the intake channel, so once
	// its single slot is occupied, further enqueues must back off and
	// eventually report QueueFull.
	pool := &Pool{
		log:        zap.NewNop(),
		processor:  &fakeProcessor{},
		jobTimeout: time.Second,
		intake:     make(chan Job, 1),
		stopped:    make(chan struct{}),
	}
	pool.intake <- Job{URL: "occupied", Response: make(chan Outcome, 1)}

	start := time.Now()
	err := pool.Enqueue(context.Background(), Job{URL: "https://example.com", Response: make(chan Outcome, 1)})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, apierr.KindQueueFull, apierr.KindOf(err))
	assert.GreaterOrEqual(t, elapsed, 2*enqueueRetryDelay)
}
