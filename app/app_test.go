package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/nrtkbb/forensic/eventlog"
	"github.com/nrtkbb/forensic/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	name  string
	order *[]string
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestPerformCleanupClosesInReverseOnce(t *testing.T) {
	app := NewAppContext(context.Background())
	var order []string
	app.AddCloser(recordingCloser{name: "output", order: &order})
	app.AddCloser(recordingCloser{name: "server", order: &order})

	app.PerformCleanup()
	app.PerformCleanup()

	assert.Equal(t, []string{"server", "output"}, order)
	assert.Error(t, app.Context.Err())
}

func TestBeginShutdownDrainsWithoutCancelling(t *testing.T) {
	app := NewAppContext(context.Background())
	defer app.PerformCleanup()
	assert.NotEmpty(t, app.RunID)
	assert.False(t, app.Cancelled())

	app.BeginShutdown()

	assert.True(t, app.Cancelled())
	assert.Error(t, app.Draining.Err())
	assert.NoError(t, app.Context.Err())
}

func TestWatchSignalsCancelsAfterGrace(t *testing.T) {
	app := NewAppContext(context.Background())
	defer app.PerformCleanup()
	logPath := filepath.Join(t.TempDir(), "log.txt")
	var notice bytes.Buffer

	sigs := make(chan os.Signal, 1)
	sigs <- syscall.SIGINT
	start := time.Now()
	WatchSignals(app, sigs, SignalOptions{
		Grace:  20 * time.Millisecond,
		Notice: &notice,
		Events: eventlog.New(logPath, app.Stats.StartTime),
		Abort:  func(err error) { t.Fatalf("unexpected abort: %v", err) },
	})

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.True(t, app.Cancelled())
	assert.ErrorIs(t, app.Context.Err(), context.Canceled)
	assert.Equal(t, "Received SIGINT, shutting down.\n", notice.String())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), " - 00000000 - SIGNAL INT\n"))
}

func TestWatchSignalsUnexpectedSignalAborts(t *testing.T) {
	app := NewAppContext(context.Background())
	defer app.PerformCleanup()

	var aborted error
	sigs := make(chan os.Signal, 1)
	sigs <- syscall.SIGHUP
	WatchSignals(app, sigs, SignalOptions{Abort: func(err error) { aborted = err }})

	var protoErr *progress.SignalProtocolError
	require.True(t, errors.As(aborted, &protoErr))
	assert.Equal(t, "cancel", protoErr.Handler)
	assert.False(t, app.Cancelled())
}

func TestWatchSignalsReturnsWhenRunEnds(t *testing.T) {
	app := NewAppContext(context.Background())
	app.PerformCleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchSignals(app, make(chan os.Signal), SignalOptions{})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not return")
	}
}
