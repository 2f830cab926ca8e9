package models

import (
	"io/fs"
	"sync/atomic"
	"time"
)

// Kind classifies a filesystem entry for traversal purposes.
type Kind int

const (
	KindOther Kind = iota
	KindRegular
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular-file"
	case KindDirectory:
		return "directory"
	default:
		return "other"
	}
}

// Digest is one (algorithm, digest) pair. The value is opaque and emitted verbatim.
type Digest struct {
	Algorithm string
	Value     string
}

// FileRecord is the metadata snapshot of one regular file. It lives only
// for the duration of that file's processing.
type FileRecord struct {
	Path       string
	Kind       Kind
	Size       int64
	Mode       fs.FileMode
	ModTime    time.Time
	AccessTime time.Time
	ChangeTime time.Time
	BirthTime  time.Time
	Digests    []Digest
}

// ProgressStats holds the run-wide counters. Both counters only ever grow.
type ProgressStats struct {
	DirsEntered    atomic.Int64
	FilesProcessed atomic.Int64
	StartTime      time.Time
}
