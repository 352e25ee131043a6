package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// HashStrings returns a SHA256 hash of the provided strings with newline
// separators. Used as a stable digest of a rule set.
func HashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Digest is an io.Writer that accumulates a SHA256 of everything written,
// so an upload can be hashed while it is staged to disk.
type Digest struct {
	h hash.Hash
}

func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Hex returns the hex-encoded digest of the bytes written so far.
func (d *Digest) Hex() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
