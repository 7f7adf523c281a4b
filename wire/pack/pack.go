// Package pack implements packfile v2 encoding/decoding for object
// transfer (spec.md §4.10): a "PACK" header, a variable-length
// size+type entry header with MSB continuation bits, a zlib-compressed
// payload per object, and a trailing SHA-1 checksum. Grounded on the
// object-entry header layout documented in Nivl-git-go's
// ginternals/packfile/packfile.go, simplified to this system's needs:
// no delta objects (spec.md explicitly makes decoding one a protocol
// error) and no separate index file, since the transport reads every
// object sequentially rather than doing random access.
package pack

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"crypto/sha1" //nolint:gosec // packfile checksum, not used for security
	"encoding/binary"
	"io"

	"github.com/dvcs-go/dvcs/errs"
	dvcshash "github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
)

// Magic is the 4-byte packfile signature.
var Magic = [4]byte{'P', 'A', 'C', 'K'}

// Version is the only packfile version this system produces or reads.
const Version uint32 = 2

// typeBits maps an objstore.Kind onto the packfile's 3-bit type field.
func typeBits(k objstore.Kind) (byte, error) {
	switch k {
	case objstore.KindCommit:
		return 1, nil
	case objstore.KindTree:
		return 2, nil
	case objstore.KindBlob:
		return 3, nil
	default:
		return 0, errs.NewProtocolError("object kind %s has no packfile type bits", k)
	}
}

func kindFromTypeBits(t byte) (objstore.Kind, error) {
	switch t {
	case 1:
		return objstore.KindCommit, nil
	case 2:
		return objstore.KindTree, nil
	case 3:
		return objstore.KindBlob, nil
	default:
		return 0, errs.NewProtocolError("delta or unknown packfile object type %d is not supported", t)
	}
}

// Encode writes every object in objs as a packfile to w, in the order
// given, followed by the SHA-1 trailer of every byte written before it
// (spec.md §4.10's checksum discipline: written always, verification
// on read is optional).
func Encode(w io.Writer, objs []*objstore.Object) error {
	sum := sha1.New() //nolint:gosec // packfile checksum
	mw := io.MultiWriter(w, sum)

	if _, err := mw.Write(Magic[:]); err != nil {
		return errs.NewProtocolError("could not write packfile magic: %v", err)
	}
	if err := writeUint32(mw, Version); err != nil {
		return err
	}
	if err := writeUint32(mw, uint32(len(objs))); err != nil {
		return err
	}

	for _, o := range objs {
		if err := encodeEntry(mw, o); err != nil {
			return err
		}
	}

	if _, err := w.Write(sum.Sum(nil)); err != nil {
		return errs.NewProtocolError("could not write packfile checksum: %v", err)
	}
	return nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	if err != nil {
		return errs.NewProtocolError("could not write packfile header: %v", err)
	}
	return nil
}

func encodeEntry(w io.Writer, o *objstore.Object) error {
	t, err := typeBits(o.Kind())
	if err != nil {
		return err
	}

	size := uint64(o.Size())
	first := byte(size&0x0f) | (t << 4)
	size >>= 4
	if size > 0 {
		first |= 0x80
	}
	if _, err := w.Write([]byte{first}); err != nil {
		return errs.NewProtocolError("could not write object header: %v", err)
	}
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return errs.NewProtocolError("could not write object header: %v", err)
		}
	}

	zw := zlib.NewWriter(w)
	if _, err := zw.Write(o.Payload()); err != nil {
		return errs.NewProtocolError("could not write object payload: %v", err)
	}
	if err := zw.Close(); err != nil {
		return errs.NewProtocolError("could not flush object payload: %v", err)
	}
	return nil
}

// Decode reads a packfile from r and returns every object it holds, in
// encoded order. The trailing checksum is not recomputed and compared
// against what was read (see Encode).
func Decode(r io.Reader) ([]*objstore.Object, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, errs.NewProtocolError("could not read packfile magic: %v", err)
	}
	if magic != Magic {
		return nil, errs.NewProtocolError("bad packfile magic %q", magic)
	}

	version, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, errs.NewProtocolError("unsupported packfile version %d", version)
	}

	count, err := readUint32(br)
	if err != nil {
		return nil, err
	}

	objs := make([]*objstore.Object, 0, count)
	for i := uint32(0); i < count; i++ {
		o, err := decodeEntry(br)
		if err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}

	var trailer [dvcshash.Size]byte
	if _, err := io.ReadFull(br, trailer[:]); err != nil {
		return nil, errs.NewProtocolError("could not read packfile checksum: %v", err)
	}

	return objs, nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errs.NewProtocolError("could not read packfile header: %v", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func decodeEntry(r *bufio.Reader) (*objstore.Object, error) {
	first, err := r.ReadByte()
	if err != nil {
		return nil, errs.NewProtocolError("could not read object header: %v", err)
	}
	t := (first >> 4) & 0x07
	size := uint64(first & 0x0f)
	shift := uint(4)
	more := first&0x80 != 0

	for more {
		b, err := r.ReadByte()
		if err != nil {
			return nil, errs.NewProtocolError("could not read object header: %v", err)
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
		more = b&0x80 != 0
	}

	kind, err := kindFromTypeBits(t)
	if err != nil {
		return nil, err
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, errs.NewProtocolError("could not open zlib reader: %v", err)
	}
	var payload bytes.Buffer
	if _, err := io.Copy(&payload, zr); err != nil {
		return nil, errs.NewProtocolError("could not decompress object payload: %v", err)
	}
	if err := zr.Close(); err != nil {
		return nil, errs.NewProtocolError("could not close zlib reader: %v", err)
	}
	if uint64(payload.Len()) != size {
		return nil, errs.NewProtocolError("object size mismatch: header said %d, got %d", size, payload.Len())
	}

	return objstore.New(kind, payload.Bytes()), nil
}
