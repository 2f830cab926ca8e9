// Package progress implements the run-wide progress counters and the
// notifications that drive them.
//
// Workers deliver EnterDir right before enumerating a directory and
// FileDone right before probing a file. FileDone marks the start of a
// file's processing, not its completion: a file whose probe fails is still
// counted. Cancel is never handled here; it belongs to the top-level signal
// watcher in package app.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/nrtkbb/forensic/models"
)

type Notification int

const (
	EnterDir Notification = iota + 1
	FileDone
	Cancel
)

func (n Notification) String() string {
	switch n {
	case EnterDir:
		return "ENTER_DIR"
	case FileDone:
		return "FILE_DONE"
	case Cancel:
		return "CANCEL"
	default:
		return fmt.Sprintf("Notification(%d)", int(n))
	}
}

// SignalProtocolError reports a notification or OS signal that the active
// handler does not expect. It is always fatal.
type SignalProtocolError struct {
	Received string
	Handler  string
}

func (e *SignalProtocolError) Error() string {
	return fmt.Sprintf("signal protocol: %s handler received unexpected %s", e.Handler, e.Received)
}

// Tracker owns the counters of a run.
type Tracker struct {
	stats *models.ProgressStats
	out   io.Writer
	mu    sync.Mutex
}

// NewTracker reports directory entries to out. A nil out suppresses the
// progress lines but still counts.
func NewTracker(stats *models.ProgressStats, out io.Writer) *Tracker {
	return &Tracker{stats: stats, out: out}
}

func (t *Tracker) Handle(n Notification) error {
	switch n {
	case EnterDir:
		dirs := t.stats.DirsEntered.Add(1)
		if t.out != nil {
			files := t.stats.FilesProcessed.Load()
			t.mu.Lock()
			fmt.Fprintf(t.out, "New directory: %d/%d directories/files at this time.\n", dirs, files)
			t.mu.Unlock()
		}
		return nil
	case FileDone:
		t.stats.FilesProcessed.Add(1)
		return nil
	default:
		return &SignalProtocolError{Received: n.String(), Handler: "progress"}
	}
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() (dirs, files int64) {
	return t.stats.DirsEntered.Load(), t.stats.FilesProcessed.Load()
}
