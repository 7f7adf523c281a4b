// Package hash implements the 160-bit content digest used to address
// every object in the store (spec.md §3, §4.1), plus the zlib
// compression helpers objects are persisted with.
package hash

import (
	"crypto/sha1" //nolint:gosec // content-addressing digest, not used for security
	"encoding/hex"

	"golang.org/x/xerrors"
)

// Size is the length, in bytes, of a raw Digest.
const Size = 20

// HexSize is the length, in characters, of a Digest's canonical hex form.
const HexSize = Size * 2

// ErrInvalidHash is returned whenever a string or byte slice doesn't
// hold a well-formed digest: wrong length, or characters outside the
// [0-9a-f] alphabet.
var ErrInvalidHash = xerrors.New("invalid hash")

// Digest is a 160-bit content identifier. Its zero value is the all-zero
// digest, used as the "no object" sentinel in wire messages (spec.md §4.11).
type Digest [Size]byte

// Zero is the all-zero digest.
var Zero Digest

// Sum returns the Digest of the given bytes.
func Sum(b []byte) Digest {
	return Digest(sha1.Sum(b)) //nolint:gosec // content-addressing digest
}

// Bytes returns the raw 20-byte form of the digest.
func (d Digest) Bytes() []byte {
	return d[:]
}

// String returns the canonical 40-char lowercase hex form of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the all-zero digest.
func (d Digest) IsZero() bool {
	return d == Zero
}

// FromHex parses a 40-char lowercase hex string into a Digest.
// Returns ErrInvalidHash if the length or alphabet is wrong.
func FromHex(s string) (Digest, error) {
	if len(s) != HexSize {
		return Zero, ErrInvalidHash
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'F' {
			return Zero, ErrInvalidHash
		}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Zero, xerrors.Errorf("%v: %w", err, ErrInvalidHash)
	}
	return FromRaw(raw)
}

// MarshalJSON renders the digest as its canonical hex string, used by
// the pull-request service to persist commit digests as JSON (spec.md
// §4.13).
func (d Digest) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses the canonical hex string produced by MarshalJSON.
func (d *Digest) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return xerrors.Errorf("digest: %w", ErrInvalidHash)
	}
	parsed, err := FromHex(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FromRaw builds a Digest from its 20-byte raw form.
func FromRaw(b []byte) (Digest, error) {
	if len(b) != Size {
		return Zero, ErrInvalidHash
	}
	var d Digest
	copy(d[:], b)
	return d, nil
}
