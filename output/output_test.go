package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nrtkbb/forensic/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *models.FileRecord {
	mtime := time.Date(2018, 1, 4, 16, 30, 19, 0, time.Local)
	atime := time.Date(2018, 1, 5, 8, 0, 0, 0, time.Local)
	return &models.FileRecord{
		Path:       "a.txt",
		Kind:       models.KindRegular,
		Size:       10,
		Mode:       0644,
		ModTime:    mtime,
		AccessTime: atime,
	}
}

func TestFormatRecord(t *testing.T) {
	tests := []struct {
		name    string
		digests []models.Digest
		want    string
	}{
		{
			name: "no digests",
			want: "a.txt,regular-file,10,rw-,2018-01-04T16:30:19,2018-01-05T08:00:00\n",
		},
		{
			name: "digests in given order",
			digests: []models.Digest{
				{Algorithm: "md5", Value: "m"},
				{Algorithm: "sha256", Value: "s"},
			},
			want: "a.txt,regular-file,10,rw-,2018-01-04T16:30:19,2018-01-05T08:00:00,m,s\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRecord()
			r.Digests = tt.digests
			assert.Equal(t, tt.want, FormatRecord(r))
		})
	}
}

func TestFormatRecordDoesNotEscapeCommas(t *testing.T) {
	r := sampleRecord()
	r.Path = "dir/with,comma.txt"
	line := FormatRecord(r)
	assert.True(t, strings.HasPrefix(line, "dir/with,comma.txt,regular-file,"))
}

func TestEmitterConcurrentLinesAreWhole(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEmitter(&buf)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				assert.NoError(t, emitter.Emit(sampleRecord()))
			}
		}()
	}
	wg.Wait()

	want := FormatRecord(sampleRecord())
	lines := strings.SplitAfter(buf.String(), "\n")
	lines = lines[:len(lines)-1]
	require.Len(t, lines, 500)
	for _, line := range lines {
		assert.Equal(t, want, line)
	}
}

func TestEmitterClosedRejectsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	emitter, err := Create(path)
	require.NoError(t, err)

	require.NoError(t, emitter.Emit(sampleRecord()))
	require.NoError(t, emitter.Close())
	require.NoError(t, emitter.Close())

	err = emitter.Emit(sampleRecord())
	assert.True(t, errors.Is(err, ErrClosed))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatRecord(sampleRecord()), string(data))
}
