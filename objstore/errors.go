package objstore

import "golang.org/x/xerrors"

// Error sentinels, grouped by the taxonomy in spec.md §7.
var (
	// ErrUnknownKind is returned when an object header names a kind
	// other than blob/tree/commit.
	ErrUnknownKind = xerrors.New("unknown object kind")
	// ErrFormat is returned when persisted object bytes are malformed.
	ErrFormat = xerrors.New("malformed object")
	// ErrNotFound is returned when a digest has no matching object in
	// the store.
	ErrNotFound = xerrors.New("object not found")
	// ErrUnexpectedKind is returned when a read produced an object of a
	// kind different than the one the caller asked for.
	ErrUnexpectedKind = xerrors.New("unexpected object kind")
)
