// Package pktline implements the pkt-line framing of spec.md §4.10:
// a 4-hex-digit length prefix followed by content, with a length-0000
// flush packet as a sentinel. The 4-hex-digit length convention is the
// same one exercised by antgroup-hugescm's
// modules/plumbing/format/pktline encoder tests (asciiHex16); no full
// encoder/decoder from the pack could be retrieved, so the read/write
// loop here is written directly from spec.md's own framing rules.
package pktline

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/dvcs-go/dvcs/errs"
)

// MaxLength is the largest a single pkt-line's total length (prefix +
// content) may be before it's a protocol error (spec.md §4.10: "length
// > 4k is an error").
const MaxLength = 4096

// Flush is the literal flush-packet line.
const Flush = "0000"

// WriteString writes content as one pkt-line: a trailing "\n" is
// appended, and its byte count is included in the encoded length.
func WriteString(w io.Writer, content string) error {
	return WriteBytes(w, []byte(content+"\n"))
}

// WriteBytes writes content as one pkt-line verbatim (no newline
// appended).
func WriteBytes(w io.Writer, content []byte) error {
	length := 4 + len(content)
	if length > MaxLength {
		return errs.NewProtocolError("pkt-line length %d exceeds %d", length, MaxLength)
	}
	if _, err := fmt.Fprintf(w, "%04x", length); err != nil {
		return errs.NewProtocolError("could not write pkt-line length: %v", err)
	}
	if _, err := w.Write(content); err != nil {
		return errs.NewProtocolError("could not write pkt-line content: %v", err)
	}
	return nil
}

// WriteFlush writes the flush packet.
func WriteFlush(w io.Writer) error {
	_, err := io.WriteString(w, Flush)
	if err != nil {
		return errs.NewProtocolError("could not write flush packet: %v", err)
	}
	return nil
}

// Read reads a single pkt-line from r. ok is false and content is nil
// when the line read was the flush packet.
func Read(r *bufio.Reader) (content []byte, ok bool, err error) {
	lengthHex := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthHex); err != nil {
		return nil, false, errs.NewProtocolError("could not read pkt-line length: %v", err)
	}

	raw, err := strconv.ParseUint(string(lengthHex), 16, 32)
	if err != nil {
		return nil, false, errs.NewProtocolError("malformed pkt-line length %q", lengthHex)
	}
	length := int(raw)
	if length == 0 {
		return nil, false, nil
	}
	if length > MaxLength {
		return nil, false, errs.NewProtocolError("pkt-line length %d exceeds %d", length, MaxLength)
	}
	if length < 4 {
		return nil, false, errs.NewProtocolError("pkt-line length %d smaller than header", length)
	}

	content = make([]byte, length-4)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, false, errs.NewProtocolError("could not read pkt-line content: %v", err)
	}
	return content, true, nil
}

// ReadAll reads pkt-lines until a flush packet, returning the content
// of every non-flush line read.
func ReadAll(r *bufio.Reader) ([][]byte, error) {
	var lines [][]byte
	for {
		content, ok, err := Read(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			return lines, nil
		}
		lines = append(lines, content)
	}
}
