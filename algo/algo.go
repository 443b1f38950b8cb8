// Package algo is the hash-algorithm table the authentication core drives
// the digest primitive through. It plays the role cipher_suites.go plays
// for the IKE cipher suite: a small tagged variant indexing into a table of
// digest length and HMAC function.
package algo

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2s"
)

// Algo identifies a hash algorithm usable for Babel HMAC authentication.
type Algo uint8

const (
	SHA256 Algo = iota + 1
	SHA384
	BLAKE2s256
)

func (a Algo) String() string {
	switch a {
	case SHA256:
		return "SHA256"
	case SHA384:
		return "SHA384"
	case BLAKE2s256:
		return "BLAKE2s256"
	default:
		return "Algo(unknown)"
	}
}

// DigestLength returns the digest length, in bytes, that HMAC produces
// for this algorithm. Returns 0 for an unrecognized algorithm.
func (a Algo) DigestLength() int {
	switch a {
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case BLAKE2s256:
		return blake2s.Size
	default:
		return 0
	}
}

// HMAC computes the keyed digest of message under key, for the given
// algorithm. BLAKE2s256 uses its native keyed mode rather than being
// wrapped in HMAC, since that's the algorithm's intended MAC construction.
func HMAC(a Algo, key, message []byte) ([]byte, error) {
	switch a {
	case SHA256:
		return macSum(hmac.New(sha256.New, key), message), nil
	case SHA384:
		return macSum(hmac.New(sha512.New384, key), message), nil
	case BLAKE2s256:
		h, err := blake2s.New256(key)
		if err != nil {
			return nil, errors.Wrap(err, "blake2s keyed hash")
		}
		return macSum(h, message), nil
	default:
		return nil, errors.Errorf("unsupported hash algorithm %d", a)
	}
}

func macSum(h hash.Hash, message []byte) []byte {
	h.Write(message)
	return h.Sum(nil)
}
