// Package walker is the concurrent traversal engine.
//
// Every directory is handled by its own subordinate worker. A worker lists
// the directory, processes its regular files synchronously and starts one
// further worker per subdirectory when recursion is enabled; it then blocks
// until all of those have finished. Workers are goroutines admitted by a
// fixed number of slots. When no slot is free the directory is processed
// in the calling goroutine instead, so deep trees never wait on each other.
//
// Entry level failures (probe, digest, directory listing, spawn) are logged
// and skipped. A progress protocol error cancels the whole walk.
package walker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/nrtkbb/forensic/config"
	"github.com/nrtkbb/forensic/digest"
	"github.com/nrtkbb/forensic/eventlog"
	"github.com/nrtkbb/forensic/models"
	"github.com/nrtkbb/forensic/output"
	"github.com/nrtkbb/forensic/progress"
	"github.com/nrtkbb/forensic/scanner"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// TopLevel is the worker identifier of the goroutine that called Walk.
const TopLevel int64 = 0

var ErrNoWorkerSlot = errors.New("no free worker slot")

// SpawnError reports that a directory could not get its own worker. The
// directory is then processed in place.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn worker for %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// WorkerHandle lets a parent block until a subordinate worker is done.
type WorkerHandle struct {
	ID   int64
	Path string
	done chan struct{}
	err  error
}

func (h *WorkerHandle) Wait() error {
	<-h.done
	return h.err
}

type Engine struct {
	cfg      *config.RunConfig
	fs       afero.Fs
	prober   *scanner.Prober
	digests  digest.Runner
	emitter  *output.Emitter
	events   *eventlog.Logger
	progress Notifier
	slots    *semaphore.Weighted
	tracer   trace.Tracer
	drain    <-chan struct{}

	workerSeq atomic.Int64
}

// Notifier receives the progress notifications of a walk.
type Notifier interface {
	Handle(n progress.Notification) error
}

type Option func(*Engine)

// WithFs replaces the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(e *Engine) {
		e.fs = fsys
	}
}

func WithDigestRunner(r digest.Runner) Option {
	return func(e *Engine) {
		e.digests = r
	}
}

// WithEventLog enables the event log. A nil logger disables it.
func WithEventLog(l *eventlog.Logger) Option {
	return func(e *Engine) {
		e.events = l
	}
}

// WithDrain stops workers from starting new entries once drain is closed.
// Work already in flight is left to finish.
func WithDrain(drain <-chan struct{}) Option {
	return func(e *Engine) {
		e.drain = drain
	}
}

func New(cfg *config.RunConfig, emitter *output.Emitter, tracker Notifier, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		fs:       afero.NewOsFs(),
		emitter:  emitter,
		progress: tracker,
		tracer:   otel.Tracer("walker"),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.prober = scanner.NewProber(e.fs)
	if e.digests == nil {
		if cfg.ExternalDigests {
			e.digests = digest.NewExternal()
		} else {
			e.digests = digest.NewLocal(e.fs)
		}
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	e.slots = semaphore.NewWeighted(int64(workers))

	return e
}

// walk carries the cancellation of one Walk call.
type walk struct {
	*Engine
	cancel context.CancelCauseFunc
}

// Walk processes root, a regular file or a directory. It returns nil on a
// complete walk, the context's error when cancelled and the protocol error
// when the progress protocol failed.
func (e *Engine) Walk(ctx context.Context, root string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	w := &walk{Engine: e, cancel: cancel}

	kind, err := e.prober.Classify(root)
	if err != nil {
		return err
	}

	switch kind {
	case models.KindRegular:
		err = w.processFile(ctx, TopLevel, root)
	case models.KindDirectory:
		err = w.processDir(ctx, TopLevel, root)
	default:
		return fmt.Errorf("%s is not a file/directory", root)
	}

	if err == nil {
		err = ctx.Err()
	}
	if err == nil && w.draining() {
		err = context.Canceled
	}
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
	}
	return err
}

func (w *walk) draining() bool {
	if w.drain == nil {
		return false
	}
	select {
	case <-w.drain:
		return true
	default:
		return false
	}
}

// notify delivers a progress notification. A protocol error aborts the walk.
func (w *walk) notify(n progress.Notification) error {
	if err := w.progress.Handle(n); err != nil {
		w.cancel(err)
		return err
	}
	return nil
}

func (w *walk) processDir(ctx context.Context, parent int64, dir string) error {
	h, err := w.enterDir(ctx, dir)
	if err != nil {
		return err
	}
	return w.finishDir(parent, h)
}

// enterDir announces dir and starts its worker.
func (w *walk) enterDir(ctx context.Context, dir string) (*WorkerHandle, error) {
	if err := w.notify(progress.EnterDir); err != nil {
		return nil, err
	}
	return w.spawn(ctx, dir), nil
}

func (w *walk) finishDir(parent int64, h *WorkerHandle) error {
	err := h.Wait()
	w.events.Logf(parent, "PROCESSED %s", h.Path)
	return err
}

func (w *walk) spawn(ctx context.Context, dir string) *WorkerHandle {
	h := &WorkerHandle{
		ID:   w.workerSeq.Add(1),
		Path: dir,
		done: make(chan struct{}),
	}
	run := func() {
		defer close(h.done)
		h.err = w.runWorker(ctx, h.ID, dir)
	}

	if !w.slots.TryAcquire(1) {
		if w.cfg.Debug {
			log.Printf("%v, processing in place", &SpawnError{Path: dir, Err: ErrNoWorkerSlot})
		}
		run()
		return h
	}
	go func() {
		defer w.slots.Release(1)
		run()
	}()
	return h
}

// runWorker is the body of a directory worker.
func (w *walk) runWorker(ctx context.Context, worker int64, dir string) error {
	ctx, span := w.tracer.Start(ctx, "walker.worker", trace.WithAttributes(
		attribute.String("path", dir),
		attribute.Int64("worker.id", worker),
	))
	defer span.End()

	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		w.skip(worker, dir, err)
		span.RecordError(err)
		return nil
	}

	var pending []*WorkerHandle
	var firstErr error
	for _, entry := range entries {
		if ctx.Err() != nil || w.draining() {
			break
		}
		path := filepath.Join(dir, entry.Name())

		switch scanner.KindOf(entry.Mode()) {
		case models.KindDirectory:
			if !w.cfg.Recursive {
				continue
			}
			h, err := w.enterDir(ctx, path)
			if err != nil {
				firstErr = err
			} else {
				pending = append(pending, h)
			}
		case models.KindRegular:
			if err := w.processFile(ctx, worker, path); err != nil {
				firstErr = err
			}
		}
		if firstErr != nil {
			break
		}
	}

	for _, h := range pending {
		if err := w.finishDir(worker, h); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		span.SetStatus(codes.Error, firstErr.Error())
	}
	return firstErr
}

func (w *walk) processFile(ctx context.Context, worker int64, path string) error {
	// FILE_DONE marks the start of processing
	if err := w.notify(progress.FileDone); err != nil {
		return err
	}

	ctx, span := w.tracer.Start(ctx, "walker.processFile", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Int64("worker.id", worker),
	))
	defer span.End()

	record, err := w.prober.Probe(path)
	if err != nil {
		w.skip(worker, path, err)
		span.RecordError(err)
		return nil
	}
	if record.Kind != models.KindRegular {
		return nil
	}
	span.SetAttributes(attribute.Int64("size", record.Size))

	if !w.cfg.Algorithms.Empty() {
		digests, err := w.digests.Digest(ctx, path, w.cfg.Algorithms)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// failed algorithms are left out of the record
			log.Printf("Warning: %v", err)
			w.events.Logf(worker, "DIGEST FAILED %s: %v", path, err)
			span.RecordError(err)
		}
		record.Digests = digests
		span.SetAttributes(attribute.Int("digests", len(digests)))
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := w.emitter.Emit(record); err != nil {
		if errors.Is(err, output.ErrClosed) {
			return nil
		}
		log.Printf("Warning: failed to write record for %s: %v", path, err)
		return nil
	}
	w.events.Logf(worker, "ANALYZED %s", path)

	return nil
}

// skip reports a recoverable entry error. Entries removed mid-walk are
// expected under concurrency and only reported in debug mode.
func (w *walk) skip(worker int64, path string, err error) {
	if !errors.Is(err, os.ErrNotExist) || w.cfg.Debug {
		log.Printf("Warning: skipping %s: %v", path, err)
	}
	w.events.Logf(worker, "SKIPPED %s: %v", path, err)
}
