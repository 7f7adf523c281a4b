package index

import "golang.org/x/xerrors"

// Error sentinels (spec.md §7).
var (
	// ErrFormat is returned when the on-disk index file is malformed.
	ErrFormat = xerrors.New("malformed index")
	// ErrFileNotInIndex is returned by Remove when the given path isn't
	// currently staged.
	ErrFileNotInIndex = xerrors.New("file not in index")
)
