package hash

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/dvcs-go/dvcs/internal/errutil"
	"golang.org/x/xerrors"
)

// Compress zlib-encodes b at the default compression level, the format
// every object is persisted in (spec.md §4.1).
func Compress(b []byte) (out []byte, err error) {
	buf := new(bytes.Buffer)
	w := zlib.NewWriter(buf)
	defer errutil.Close(w, &err)

	if _, err = w.Write(b); err != nil {
		return nil, xerrors.Errorf("could not zlib-compress: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, xerrors.Errorf("could not flush zlib writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reads a zlib stream from r and returns the decoded bytes.
func Decompress(r io.Reader) (out []byte, err error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, xerrors.Errorf("could not open zlib reader: %w", err)
	}
	defer errutil.Close(zr, &err)

	out, err = io.ReadAll(zr)
	if err != nil {
		return nil, xerrors.Errorf("could not read zlib stream: %w", err)
	}
	return out, nil
}
