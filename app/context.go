package app

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nrtkbb/forensic/models"
)

// AppContext is the state owned by the top-level process of a run.
//
// Draining is done as soon as shutdown is requested: workers stop picking up
// new entries. Context is done once the grace period is over and aborts the
// work still in flight.
type AppContext struct {
	RunID    string
	Stats    *models.ProgressStats
	Context  context.Context
	Cancel   context.CancelFunc
	Draining context.Context
	Cleanup  sync.Once

	drain context.CancelFunc

	mu        sync.Mutex
	closers   []io.Closer
	cancelled bool
}

func NewAppContext(parentCtx context.Context) *AppContext {
	ctx, cancel := context.WithCancel(parentCtx)
	draining, drain := context.WithCancel(ctx)
	return &AppContext{
		RunID:    uuid.NewString(),
		Context:  ctx,
		Cancel:   cancel,
		Draining: draining,
		drain:    drain,
		Stats:    NewProgressStats(),
	}
}

// NewProgressStats captures the run's single start timestamp.
func NewProgressStats() *models.ProgressStats {
	return &models.ProgressStats{StartTime: time.Now()}
}

// Elapsed is the time since the run started.
func (app *AppContext) Elapsed() time.Duration {
	return time.Since(app.Stats.StartTime)
}

// AddCloser registers a resource released by PerformCleanup, in reverse order.
func (app *AppContext) AddCloser(c io.Closer) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.closers = append(app.closers, c)
}

// BeginShutdown records that the run was asked to stop and starts draining.
func (app *AppContext) BeginShutdown() {
	app.mu.Lock()
	app.cancelled = true
	app.mu.Unlock()
	app.drain()
}

func (app *AppContext) Cancelled() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.cancelled
}

func (app *AppContext) PerformCleanup() {
	app.Cleanup.Do(func() {
		app.Cancel()

		app.mu.Lock()
		closers := app.closers
		app.closers = nil
		app.mu.Unlock()

		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Printf("Error during cleanup: %v", err)
			}
		}
	})
}
