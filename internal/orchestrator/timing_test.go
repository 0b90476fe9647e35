package orchestrator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerRecordsDuration(t *testing.T) {
	timer := NewTimer()
	timer.Start("step")
	time.Sleep(5 * time.Millisecond)
	timer.End("step")

	report := timer.Report()
	require.Contains(t, report, "step")
	assert.GreaterOrEqual(t, report["step"], int64(0))
}

func TestTimerEndWithoutStartIsNoop(t *testing.T) {
	timer := NewTimer()
	timer.End("never-started")
	assert.Empty(t, timer.Report())
}

func TestTimePropagatesResultAndError(t *testing.T) {
	timer := NewTimer()

	value, err := Time(timer, "ok", func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, value)

	wantErr := errors.New("boom")
	_, err = Time(timer, "fail", func() (int, error) { return 0, wantErr })
	assert.ErrorIs(t, err, wantErr)

	report := timer.Report()
	assert.Contains(t, report, "ok")
	assert.Contains(t, report, "fail")
}
