package objstore

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/internal/readutil"
	"golang.org/x/xerrors"
)

// EntryMode is the mode of an entry inside a Tree (spec.md §3: only two
// modes are supported, unlike real git's richer mode set).
type EntryMode uint32

// The two supported tree entry modes.
const (
	ModeFile EntryMode = 0o100644
	ModeDir  EntryMode = 0o040000
)

// IsValid reports whether m is one of the supported modes.
func (m EntryMode) IsValid() bool {
	return m == ModeFile || m == ModeDir
}

// TreeEntry is one (mode, name, digest) tuple inside a Tree.
type TreeEntry struct {
	Mode   EntryMode
	Name   string
	Digest hash.Digest
}

// Tree is a directory snapshot: a set of entries sorted by name
// (spec.md §3, invariants I3 no duplicate names, I4 byte-lexicographic
// sort order).
type Tree struct {
	Entries []TreeEntry
}

// NewTree builds a Tree from entries, sorting them and rejecting
// duplicate names.
func NewTree(entries []TreeEntry) (*Tree, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return nil, xerrors.Errorf("duplicate tree entry %q: %w", sorted[i].Name, ErrFormat)
		}
	}
	return &Tree{Entries: sorted}, nil
}

// Encode returns the canonical tree payload: each entry encoded as
// "<mode> <name>\x00<20-byte raw digest>", concatenated in sorted order.
func (t *Tree) Encode() []byte {
	buf := new(bytes.Buffer)
	for _, e := range t.Entries {
		buf.WriteString(strconv.FormatUint(uint64(e.Mode), 8))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Digest.Bytes())
	}
	return buf.Bytes()
}

// ToObject returns the Object wrapping this tree's canonical encoding.
func (t *Tree) ToObject() *Object {
	return New(KindTree, t.Encode())
}

// DecodeTree parses a tree object's payload into entries.
func DecodeTree(payload []byte) (*Tree, error) {
	entries := []TreeEntry{}
	offset := 0
	for offset < len(payload) {
		modeBytes := readutil.ReadTo(payload[offset:], ' ')
		if modeBytes == nil {
			return nil, xerrors.Errorf("could not find mode separator: %w", ErrFormat)
		}
		mode, err := strconv.ParseUint(string(modeBytes), 8, 32)
		if err != nil {
			return nil, xerrors.Errorf("invalid mode %q: %w", modeBytes, ErrFormat)
		}
		offset += len(modeBytes) + 1

		nameBytes := readutil.ReadTo(payload[offset:], 0)
		if nameBytes == nil {
			return nil, xerrors.Errorf("could not find name terminator: %w", ErrFormat)
		}
		offset += len(nameBytes) + 1

		if offset+hash.Size > len(payload) {
			return nil, xerrors.Errorf("truncated digest for entry %q: %w", nameBytes, ErrFormat)
		}
		digest, err := hash.FromRaw(payload[offset : offset+hash.Size])
		if err != nil {
			return nil, xerrors.Errorf("invalid digest for entry %q: %w", nameBytes, ErrFormat)
		}
		offset += hash.Size

		entries = append(entries, TreeEntry{
			Mode:   EntryMode(mode),
			Name:   string(nameBytes),
			Digest: digest,
		})
	}
	return &Tree{Entries: entries}, nil
}
