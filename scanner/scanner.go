package scanner

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/nrtkbb/forensic/models"
	"github.com/spf13/afero"
)

// ProbeError reports a failed stat of a single entry. The entry is skipped,
// the run continues.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Prober stats paths without following symbolic links.
type Prober struct {
	fs     afero.Fs
	native bool
}

func NewProber(fsys afero.Fs) *Prober {
	_, native := fsys.(*afero.OsFs)
	return &Prober{fs: fsys, native: native}
}

// KindOf maps a file mode to the traversal classification. Symlinks,
// sockets, FIFOs and devices are all KindOther.
func KindOf(mode fs.FileMode) models.Kind {
	switch {
	case mode.IsRegular():
		return models.KindRegular
	case mode.IsDir():
		return models.KindDirectory
	default:
		return models.KindOther
	}
}

func (p *Prober) lstat(path string) (os.FileInfo, error) {
	if l, ok := p.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return p.fs.Stat(path)
}

// Classify returns only the kind of the entry at path.
func (p *Prober) Classify(path string) (models.Kind, error) {
	info, err := p.lstat(path)
	if err != nil {
		return models.KindOther, &ProbeError{Path: path, Err: err}
	}
	return KindOf(info.Mode()), nil
}

// Probe returns the metadata snapshot of path. For entries that are not
// regular files only Path and Kind are set.
func (p *Prober) Probe(path string) (*models.FileRecord, error) {
	info, err := p.lstat(path)
	if err != nil {
		return nil, &ProbeError{Path: path, Err: err}
	}

	record := &models.FileRecord{
		Path: path,
		Kind: KindOf(info.Mode()),
	}
	if record.Kind != models.KindRegular {
		return record, nil
	}

	record.Size = info.Size()
	record.Mode = info.Mode()
	record.ModTime = info.ModTime()
	record.AccessTime, record.ChangeTime, record.BirthTime = record.ModTime, record.ModTime, record.ModTime
	if p.native {
		record.AccessTime, record.ChangeTime, record.BirthTime = getFileTimes(path, info)
	}

	return record, nil
}

// FormatPermissions renders the owner read/write/execute bits, e.g. "rw-".
func FormatPermissions(mode fs.FileMode) string {
	permBits := mode & fs.ModePerm

	result := map[bool]string{true: "r", false: "-"}[(permBits&0400) != 0]
	result += map[bool]string{true: "w", false: "-"}[(permBits&0200) != 0]
	result += map[bool]string{true: "x", false: "-"}[(permBits&0100) != 0]

	return result
}
