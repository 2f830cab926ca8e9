package digest

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"io"

	"github.com/nrtkbb/forensic/models"
	"github.com/spf13/afero"
)

// Local hashes files in-process.
type Local struct {
	Fs afero.Fs
}

func NewLocal(fsys afero.Fs) *Local {
	return &Local{Fs: fsys}
}

func newHash(a Algorithm) hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	default:
		return sha256.New()
	}
}

func (l *Local) Digest(ctx context.Context, path string, algs Set) ([]models.Digest, error) {
	var digests []models.Digest
	var errs []error
	for _, a := range algs.Algorithms() {
		value, err := l.calculate(ctx, path, a)
		if err != nil {
			errs = append(errs, &DigestError{Algorithm: a, Path: path, Err: err})
			continue
		}
		digests = append(digests, models.Digest{Algorithm: a.String(), Value: value})
	}
	return digests, errors.Join(errs...)
}

func (l *Local) calculate(ctx context.Context, path string, a Algorithm) (string, error) {
	file, err := l.Fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := newHash(a)
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: file}); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ctxReader stops a copy as soon as ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
