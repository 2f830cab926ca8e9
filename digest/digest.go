// Package digest computes the cryptographic digests attached to file records.
//
// Digests are always produced in the fixed order md5, sha1, sha256 no matter
// the order in which the algorithms were requested. A failure of one
// algorithm never affects the others.
package digest

import (
	"context"
	"fmt"
	"strings"

	"github.com/nrtkbb/forensic/models"
)

type Algorithm uint8

const (
	MD5 Algorithm = 1 << iota
	SHA1
	SHA256
)

// ordered is the emission order of digests.
var ordered = []Algorithm{MD5, SHA1, SHA256}

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// HexLen is the length of the hex encoded digest.
func (a Algorithm) HexLen() int {
	switch a {
	case MD5:
		return 32
	case SHA1:
		return 40
	case SHA256:
		return 64
	default:
		return 0
	}
}

// ParseAlgorithm accepts "md5", "sha1" or "sha256".
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range ordered {
		if name == a.String() {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown digest algorithm %q", name)
}

// Set is a set of algorithms.
type Set uint8

// ParseSet parses a comma separated list such as "md5,sha256".
func ParseSet(list string) (Set, error) {
	var set Set
	for _, name := range strings.Split(list, ",") {
		a, err := ParseAlgorithm(name)
		if err != nil {
			return 0, err
		}
		set = set.With(a)
	}
	return set, nil
}

func (s Set) With(a Algorithm) Set {
	return s | Set(a)
}

func (s Set) Has(a Algorithm) bool {
	return s&Set(a) != 0
}

func (s Set) Empty() bool {
	return s == 0
}

// Algorithms returns the members of s in emission order.
func (s Set) Algorithms() []Algorithm {
	var algs []Algorithm
	for _, a := range ordered {
		if s.Has(a) {
			algs = append(algs, a)
		}
	}
	return algs
}

func (s Set) String() string {
	names := make([]string, 0, len(ordered))
	for _, a := range s.Algorithms() {
		names = append(names, a.String())
	}
	return strings.Join(names, ",")
}

func (s Set) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DigestError reports the failure of a single algorithm for a single file.
type DigestError struct {
	Algorithm Algorithm
	Path      string
	Err       error
}

func (e *DigestError) Error() string {
	return fmt.Sprintf("%s digest of %s: %v", e.Algorithm, e.Path, e.Err)
}

func (e *DigestError) Unwrap() error {
	return e.Err
}

// Runner produces the digests of a file. Successful digests are returned
// even when some algorithms fail; the error then joins one *DigestError per
// failed algorithm.
type Runner interface {
	Digest(ctx context.Context, path string, algs Set) ([]models.Digest, error)
}
