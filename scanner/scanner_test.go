package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/nrtkbb/forensic/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPermissions(t *testing.T) {
	tests := []struct {
		name     string
		mode     fs.FileMode
		expected string
	}{
		{name: "read write", mode: 0644, expected: "rw-"},
		{name: "all owner bits", mode: 0755, expected: "rwx"},
		{name: "read only", mode: 0444, expected: "r--"},
		{name: "group bits ignored", mode: 0077, expected: "---"},
		{name: "execute only", mode: 0100, expected: "--x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPermissions(tt.mode))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, models.KindRegular, KindOf(0644))
	assert.Equal(t, models.KindDirectory, KindOf(fs.ModeDir|0755))
	assert.Equal(t, models.KindOther, KindOf(fs.ModeSymlink|0777))
	assert.Equal(t, models.KindOther, KindOf(fs.ModeNamedPipe))
	assert.Equal(t, models.KindOther, KindOf(fs.ModeSocket))
}

func TestProbeRegularFileInMemory(t *testing.T) {
	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/data/a.txt", []byte("0123456789"), 0644))
	mtime := time.Date(2020, 3, 4, 5, 6, 7, 0, time.Local)
	require.NoError(t, memFs.Chtimes("/data/a.txt", mtime, mtime))

	record, err := NewProber(memFs).Probe("/data/a.txt")
	require.NoError(t, err)

	assert.Equal(t, models.KindRegular, record.Kind)
	assert.Equal(t, int64(10), record.Size)
	assert.Equal(t, "rw-", FormatPermissions(record.Mode))
	assert.True(t, record.ModTime.Equal(mtime))
	assert.True(t, record.AccessTime.Equal(mtime))
}

func TestProbeDirectory(t *testing.T) {
	memFs := afero.NewMemMapFs()
	require.NoError(t, memFs.MkdirAll("/data/sub", 0755))

	record, err := NewProber(memFs).Probe("/data/sub")
	require.NoError(t, err)
	assert.Equal(t, models.KindDirectory, record.Kind)
	assert.Zero(t, record.Size)
}

func TestProbeMissingPath(t *testing.T) {
	_, err := NewProber(afero.NewMemMapFs()).Probe("/gone")
	require.Error(t, err)

	var probeErr *ProbeError
	require.True(t, errors.As(err, &probeErr))
	assert.Equal(t, "/gone", probeErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestProbeSymlinkIsOther(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	prober := NewProber(afero.NewOsFs())
	kind, err := prober.Classify(link)
	require.NoError(t, err)
	assert.Equal(t, models.KindOther, kind)

	record, err := prober.Probe(target)
	require.NoError(t, err)
	assert.Equal(t, models.KindRegular, record.Kind)
	assert.Equal(t, int64(1), record.Size)
	assert.False(t, record.AccessTime.IsZero())
	assert.False(t, record.ChangeTime.IsZero())
}

func TestProbeNativeFileTimes(t *testing.T) {
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
	default:
		t.Skipf("no native access times on %s", runtime.GOOS)
	}

	path := filepath.Join(t.TempDir(), "timed.txt")
	require.NoError(t, os.WriteFile(path, []byte("timed"), 0644))
	atime := time.Unix(1577934245, 0)
	mtime := time.Unix(1609556645, 0)
	require.NoError(t, os.Chtimes(path, atime, mtime))

	record, err := NewProber(afero.NewOsFs()).Probe(path)
	require.NoError(t, err)

	assert.True(t, record.ModTime.Equal(mtime))
	assert.True(t, record.AccessTime.Equal(atime), "access time %v", record.AccessTime)
	assert.False(t, record.ChangeTime.IsZero())
	assert.False(t, record.BirthTime.IsZero())
}
