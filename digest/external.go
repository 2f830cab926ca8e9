package digest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/nrtkbb/forensic/models"
)

// DefaultPrograms are the coreutils programs used by External.
var DefaultPrograms = map[Algorithm]string{
	MD5:    "md5sum",
	SHA1:   "sha1sum",
	SHA256: "sha256sum",
}

// External runs one hashing program per algorithm, sequentially, and scrapes
// the digest from its output.
type External struct {
	Programs map[Algorithm]string
}

func NewExternal() *External {
	return &External{Programs: DefaultPrograms}
}

func (e *External) Digest(ctx context.Context, path string, algs Set) ([]models.Digest, error) {
	var digests []models.Digest
	var errs []error
	for _, a := range algs.Algorithms() {
		value, err := e.run(ctx, path, a)
		if err != nil {
			errs = append(errs, &DigestError{Algorithm: a, Path: path, Err: err})
			continue
		}
		digests = append(digests, models.Digest{Algorithm: a.String(), Value: value})
	}
	return digests, errors.Join(errs...)
}

func (e *External) run(ctx context.Context, path string, a Algorithm) (string, error) {
	program, ok := e.Programs[a]
	if !ok {
		return "", fmt.Errorf("no program configured for %s", a)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, program, "--", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s exited with status %d: %w: %s", program, exitErr.ExitCode(), err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%s failed: %w", program, err)
	}

	return ParseOutput(stdout.String(), a)
}

// ParseOutput extracts the digest token from a hashing program's output.
// Leading labels such as "MD5 (file) = " and trailing path text are
// stripped. The token must be lowercase hex of the algorithm's length.
func ParseOutput(out string, a Algorithm) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty %s output", a)
	}

	// BSD style: "MD5 (path) = digest"
	token := fields[0]
	if len(fields) > 2 && fields[len(fields)-2] == "=" {
		token = fields[len(fields)-1]
	}
	token = strings.TrimPrefix(token, "\\")

	if len(token) != a.HexLen() || !isLowerHex(token) {
		return "", fmt.Errorf("unexpected %s output %q", a, line)
	}
	return token, nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9') && !('a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
