// Package readutil contains byte-oriented scanning helpers shared by the
// object, index and wire codecs.
package readutil

import "bytes"

// ReadTo scans b until the byte to is found and returns the bytes before
// it, excluding to. Returns nil if to isn't found.
func ReadTo(b []byte, to byte) []byte {
	i := bytes.IndexByte(b, to)
	if i < 0 {
		return nil
	}
	return b[:i]
}
