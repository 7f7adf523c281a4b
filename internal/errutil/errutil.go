// Package errutil contains small helpers shared by the codecs that open
// a handle, read or write through it, and must still report the first
// failure even when the deferred close also errors.
package errutil

import (
	"io"

	"golang.org/x/xerrors"
)

// Close closes c and, if *err is still nil, assigns the close error to
// it (wrapped with xerrors so the failure carries a close-site frame). A
// non-nil *err always wins: the caller's original failure is what should
// surface, not a secondary close error. Meant to be used in a defer right
// after a resource is successfully opened:
//
//	f, err := fs.Open(path)
//	if err != nil { return err }
//	defer errutil.Close(f, &err)
func Close(c io.Closer, err *error) {
	if e := c.Close(); *err == nil && e != nil {
		*err = xerrors.Errorf("close: %w", e)
	}
}
