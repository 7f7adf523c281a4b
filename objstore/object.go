// Package objstore implements the content-addressed object store
// (spec.md §3, §4.2): the blob/tree/commit object kinds, their canonical
// encoding, and the zlib-compressed filesystem layout objects are
// persisted under.
package objstore

import (
	"bytes"
	"strconv"

	"github.com/dvcs-go/dvcs/hash"
	"golang.org/x/xerrors"
)

// Kind identifies which of the three object shapes an Object holds.
type Kind int8

// The three object kinds supported by the store (spec.md Non-goals
// excludes annotated tag objects: tags live in a side table, not here).
const (
	KindBlob Kind = iota + 1
	KindTree
	KindCommit
)

// String returns the lowercase wire name of the kind, as used in the
// canonical object header and in packfile type bits.
func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// KindFromString parses the wire name of a kind back into a Kind.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "blob":
		return KindBlob, nil
	case "tree":
		return KindTree, nil
	case "commit":
		return KindCommit, nil
	default:
		return 0, xerrors.Errorf("%q: %w", s, ErrUnknownKind)
	}
}

// Object is a tagged, immutable value: one of blob/tree/commit plus its
// raw payload. Its Digest is derived from the canonical encoding of
// kind+payload, never set directly (spec.md invariant I1).
type Object struct {
	kind    Kind
	payload []byte
}

// New builds an Object of the given kind wrapping payload. The payload
// is not copied; callers must not mutate it afterwards (invariant I2:
// an object once written is never modified in place).
func New(kind Kind, payload []byte) *Object {
	return &Object{kind: kind, payload: payload}
}

// Kind returns the object's kind.
func (o *Object) Kind() Kind { return o.kind }

// Payload returns the object's raw payload.
func (o *Object) Payload() []byte { return o.payload }

// Size returns the length of the payload.
func (o *Object) Size() int { return len(o.payload) }

// Canonical returns the canonical serialization of the object:
// "<kind> <decimal_size>\x00<payload>". The object's Digest is the SHA-1
// of this exact byte sequence.
func (o *Object) Canonical() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(o.kind.String())
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(len(o.payload)))
	buf.WriteByte(0)
	buf.Write(o.payload)
	return buf.Bytes()
}

// Digest returns the content digest of the object.
func (o *Object) Digest() hash.Digest {
	return hash.Sum(o.Canonical())
}

// Compress returns the zlib-compressed canonical form, the format
// objects are persisted in on disk.
func (o *Object) Compress() ([]byte, error) {
	return hash.Compress(o.Canonical())
}

// ParseCanonical parses the canonical "<kind> <size>\x00<payload>"
// encoding back into an Object. Returns ErrFormat if the header is
// malformed or the declared size doesn't match the payload length.
func ParseCanonical(data []byte) (*Object, error) {
	sp := bytes.IndexByte(data, ' ')
	if sp < 0 {
		return nil, xerrors.Errorf("missing kind separator: %w", ErrFormat)
	}
	kind, err := KindFromString(string(data[:sp]))
	if err != nil {
		return nil, xerrors.Errorf("could not parse kind: %w", err)
	}

	rest := data[sp+1:]
	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return nil, xerrors.Errorf("missing NUL after size: %w", ErrFormat)
	}
	size, err := strconv.Atoi(string(rest[:nul]))
	if err != nil {
		return nil, xerrors.Errorf("invalid size %q: %w", rest[:nul], ErrFormat)
	}

	payload := rest[nul+1:]
	if len(payload) != size {
		return nil, xerrors.Errorf("declared size %d, got %d: %w", size, len(payload), ErrFormat)
	}
	return New(kind, payload), nil
}
