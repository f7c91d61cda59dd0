package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload(ctx context.Context) (bool, error) {
	n := r.calls.Add(1)
	return n%2 == 0, r.err
}

func TestSettingsWatcher_Polls(t *testing.T) {
	r := &countingReloader{}
	w := NewSettingsWatcher(r, 20*time.Millisecond)
	w.Start(context.Background())

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)

	w.Stop()
	w.Stop()
	seen := r.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, seen, r.calls.Load())
}

func TestSettingsWatcher_ReloadErrorKeepsPolling(t *testing.T) {
	r := &countingReloader{err: errors.New("database is locked")}
	w := NewSettingsWatcher(r, 20*time.Millisecond)
	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSettingsWatcher_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewSettingsWatcher(&countingReloader{}, time.Hour)
	w.Start(ctx)
	cancel()

	select {
	case <-w.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not exit after cancellation")
	}
}

func TestNewSettingsWatcher_DefaultInterval(t *testing.T) {
	w := NewSettingsWatcher(&countingReloader{}, 0)
	assert.Equal(t, DefaultPollInterval, w.pollInterval)
}
