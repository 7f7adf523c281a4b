package objstore

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/internal/readutil"
	"golang.org/x/xerrors"
)

// Signature is the (name, mail, time, tz) authorship tuple recorded for
// both author and committer (spec.md §3).
type Signature struct {
	Name    string
	Mail    string
	Time    int64  // unix seconds
	TZ      string // e.g. "-0700"
}

// Encode renders the signature the way it appears inside a commit:
// "name <mail> timestamp tz".
func (s Signature) Encode() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Mail, s.Time, s.TZ)
}

// ParseSignature parses a single "name <mail> timestamp tz" line.
func ParseSignature(b []byte) (Signature, error) {
	var sig Signature

	nameBytes := readutil.ReadTo(b, '<')
	if nameBytes == nil {
		return sig, xerrors.Errorf("missing name: %w", ErrFormat)
	}
	sig.Name = strings.TrimSpace(string(nameBytes))
	offset := len(nameBytes) + 1

	mailBytes := readutil.ReadTo(b[offset:], '>')
	if mailBytes == nil {
		return sig, xerrors.Errorf("missing mail: %w", ErrFormat)
	}
	sig.Mail = string(mailBytes)
	offset += len(mailBytes) + 2 // skip "> "

	if offset >= len(b) {
		return sig, xerrors.Errorf("missing timestamp: %w", ErrFormat)
	}
	tsBytes := readutil.ReadTo(b[offset:], ' ')
	if tsBytes == nil {
		return sig, xerrors.Errorf("missing timestamp: %w", ErrFormat)
	}
	ts, err := strconv.ParseInt(string(tsBytes), 10, 64)
	if err != nil {
		return sig, xerrors.Errorf("invalid timestamp %q: %w", tsBytes, ErrFormat)
	}
	sig.Time = ts
	offset += len(tsBytes) + 1

	sig.TZ = string(b[offset:])
	return sig, nil
}

// Commit is a snapshot of a Tree with parents, authorship and a message
// (spec.md §3). 0, 1 or 2 parents are supported; 2 marks a merge commit
// (invariant I5).
type Commit struct {
	Tree      hash.Digest
	Parents   []hash.Digest
	Author    Signature
	Committer Signature
	Message   string
}

// Encode renders the canonical commit encoding (spec.md §3):
//
//	tree <hex>\n
//	parent <hex>\n           (0..2 times)
//	author ... \n
//	committer ... \n
//	\n
//	<message>\n
func (c *Commit) Encode() []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(buf, "parent %s\n", p)
	}
	fmt.Fprintf(buf, "author %s\n", c.Author.Encode())
	fmt.Fprintf(buf, "committer %s\n", c.Committer.Encode())
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	if !strings.HasSuffix(c.Message, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ToObject returns the Object wrapping this commit's canonical encoding.
func (c *Commit) ToObject() *Object {
	return New(KindCommit, c.Encode())
}

// IsMerge reports whether c has two parents (invariant I5).
func (c *Commit) IsMerge() bool {
	return len(c.Parents) == 2
}

// DecodeCommit parses a commit object's payload.
func DecodeCommit(payload []byte) (*Commit, error) {
	c := &Commit{}
	offset := 0
	treeSeen := false

	for {
		line := readutil.ReadTo(payload[offset:], '\n')
		if line == nil {
			return nil, xerrors.Errorf("unterminated commit header: %w", ErrFormat)
		}
		offset += len(line) + 1

		if len(line) == 0 {
			c.Message = string(payload[offset:])
			break
		}

		kv := bytes.SplitN(line, []byte{' '}, 2)
		if len(kv) != 2 {
			return nil, xerrors.Errorf("malformed header line %q: %w", line, ErrFormat)
		}
		switch string(kv[0]) {
		case "tree":
			d, err := hash.FromHex(string(kv[1]))
			if err != nil {
				return nil, xerrors.Errorf("invalid tree digest: %w", err)
			}
			c.Tree = d
			treeSeen = true
		case "parent":
			d, err := hash.FromHex(string(kv[1]))
			if err != nil {
				return nil, xerrors.Errorf("invalid parent digest: %w", err)
			}
			if len(c.Parents) >= 2 {
				return nil, xerrors.Errorf("more than 2 parents: %w", ErrFormat)
			}
			c.Parents = append(c.Parents, d)
		case "author":
			sig, err := ParseSignature(kv[1])
			if err != nil {
				return nil, xerrors.Errorf("invalid author: %w", err)
			}
			c.Author = sig
		case "committer":
			sig, err := ParseSignature(kv[1])
			if err != nil {
				return nil, xerrors.Errorf("invalid committer: %w", err)
			}
			c.Committer = sig
		default:
			return nil, xerrors.Errorf("unknown header %q: %w", kv[0], ErrFormat)
		}
	}

	if !treeSeen {
		return nil, xerrors.Errorf("missing tree header: %w", ErrFormat)
	}
	return c, nil
}
