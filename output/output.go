package output

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/nrtkbb/forensic/models"
	"github.com/nrtkbb/forensic/scanner"
)

// TimeLayout is ISO 8601 without zone, rendered in local time.
const TimeLayout = "2006-01-02T15:04:05"

var ErrClosed = errors.New("output: emitter closed")

// FormatRecord renders one record line:
//
//	path,type,size,perm,modified,accessed[,digest]...
//
// Commas inside the path are not escaped.
func FormatRecord(r *models.FileRecord) string {
	var b strings.Builder
	b.WriteString(r.Path)
	b.WriteByte(',')
	b.WriteString(r.Kind.String())
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(r.Size, 10))
	b.WriteByte(',')
	b.WriteString(scanner.FormatPermissions(r.Mode))
	b.WriteByte(',')
	b.WriteString(r.ModTime.Local().Format(TimeLayout))
	b.WriteByte(',')
	b.WriteString(r.AccessTime.Local().Format(TimeLayout))
	for _, d := range r.Digests {
		b.WriteByte(',')
		b.WriteString(d.Value)
	}
	b.WriteByte('\n')
	return b.String()
}

// Emitter writes record lines to a shared destination. Each record is a
// single Write call made under a lock, so lines from concurrent workers do
// not interleave within this process.
type Emitter struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	closed bool
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Create truncates or creates path and emits into it. The file is closed by Close.
func Create(path string) (*Emitter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Emitter{w: f, closer: f}, nil
}

func (e *Emitter) Emit(r *models.FileRecord) error {
	line := FormatRecord(r)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	_, err := io.WriteString(e.w, line)
	return err
}

// Close stops all further output. It is safe to call more than once.
func (e *Emitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}
