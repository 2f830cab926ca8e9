// Package eventlog appends timestamped, worker-tagged lines to the run's
// event log file.
//
// Each line has the form
//
//	<elapsed ms, 2 decimals> - <worker id, 8 digits> - <action>
//
// The file is opened in append mode for every write and closed right after,
// so no descriptor is held between events. A crash mid-write can leave a
// truncated last line; readers must tolerate that.
package eventlog

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// DefaultFileName is used when LOGFILENAME is unset.
const DefaultFileName = "log.txt"

type Logger struct {
	path  string
	start time.Time
	mu    sync.Mutex
}

// New returns a logger writing to path. start is the run's single start
// timestamp, shared by every worker.
func New(path string, start time.Time) *Logger {
	return &Logger{path: path, start: start}
}

func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Reset truncates the log file.
func (l *Logger) Reset() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to reset event log: %w", err)
	}
	return f.Close()
}

// Log appends one event. A nil Logger discards events.
func (l *Logger) Log(worker int64, action string) error {
	if l == nil {
		return nil
	}
	line := FormatEvent(time.Since(l.start), worker, action)

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write event log: %w", err)
	}
	return f.Close()
}

// Logf formats action and logs it, reporting write failures to the
// diagnostic log instead of the caller.
func (l *Logger) Logf(worker int64, format string, args ...any) {
	if l == nil {
		return
	}
	if err := l.Log(worker, fmt.Sprintf(format, args...)); err != nil {
		log.Printf("Warning: %v", err)
	}
}

func FormatEvent(elapsed time.Duration, worker int64, action string) string {
	ms := float64(elapsed) / float64(time.Millisecond)
	return fmt.Sprintf("%.2f - %08d - %s\n", ms, worker, action)
}
