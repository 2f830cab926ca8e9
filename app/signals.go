package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nrtkbb/forensic/eventlog"
	"github.com/nrtkbb/forensic/progress"
)

type SignalOptions struct {
	// Grace is the pause granted to in-flight file operations.
	Grace time.Duration
	// Notice receives the shutdown message.
	Notice io.Writer
	Events *eventlog.Logger
	// Abort is called with a SignalProtocolError. Defaults to log.Fatalf.
	Abort func(error)
}

// SignalWatcher is the CANCEL disposition of the top-level process.
type SignalWatcher struct {
	sigChan chan os.Signal
	done    chan struct{}
}

// SetupSignalHandling installs the disposition for SIGINT and SIGTERM. It
// must run before any worker is started.
func SetupSignalHandling(app *AppContext, opts SignalOptions) *SignalWatcher {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	w := NewSignalWatcher(app, sigChan, opts)
	w.sigChan = sigChan
	return w
}

// NewSignalWatcher watches sigs in the background without registering
// for OS signals.
func NewSignalWatcher(app *AppContext, sigs <-chan os.Signal, opts SignalOptions) *SignalWatcher {
	w := &SignalWatcher{done: make(chan struct{})}
	go func() {
		defer close(w.done)
		WatchSignals(app, sigs, opts)
	}()
	return w
}

// Done is closed once the watcher has handled a cancellation or the run ended.
func (w *SignalWatcher) Done() <-chan struct{} {
	return w.done
}

func (w *SignalWatcher) Stop() {
	if w.sigChan != nil {
		signal.Stop(w.sigChan)
	}
}

// WatchSignals handles signals from sigs until the run ends or one
// cancellation has been carried out.
func WatchSignals(app *AppContext, sigs <-chan os.Signal, opts SignalOptions) {
	abort := opts.Abort
	if abort == nil {
		abort = func(err error) { log.Fatalf("Fatal: %v", err) }
	}

	select {
	case <-app.Context.Done():
	case sig, ok := <-sigs:
		if !ok {
			return
		}
		if err := handleSignal(app, sig, opts); err != nil {
			abort(err)
		}
	}
}

func handleSignal(app *AppContext, sig os.Signal, opts SignalOptions) error {
	var name string
	switch sig {
	case syscall.SIGINT:
		name = "INT"
	case syscall.SIGTERM:
		name = "TERM"
	default:
		return &progress.SignalProtocolError{Received: sig.String(), Handler: "cancel"}
	}

	log.Printf("Received signal: %v", sig)
	opts.Events.Logf(0, "SIGNAL %s", name)
	app.BeginShutdown()

	select {
	case <-time.After(opts.Grace):
	case <-app.Context.Done():
	}

	if opts.Notice != nil {
		fmt.Fprintf(opts.Notice, "Received SIG%s, shutting down.\n", name)
	}
	app.Cancel()
	return nil
}
