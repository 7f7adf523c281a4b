// Package protocol implements the upload-pack/receive-pack exchange and
// the higher-level fetch/clone/push/pull flows of spec.md §4.11. No
// example in the pack runs a network transport over this system's
// object model, so the wire sequencing here is written directly from
// spec.md's request-line/advertisement/want/done grammar, reusing
// wire/pktline for framing and wire/pack for the object transfer
// itself.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/wire/pktline"
)

// Service names a transport-level operation (spec.md §4.11).
type Service string

const (
	UploadPack  Service = "git-upload-pack"
	ReceivePack Service = "git-receive-pack"
)

// RequestLine is the parsed first line of a client request:
// "<service> /<repo>\0host=<host>\0\0version=1\0".
type RequestLine struct {
	Service Service
	Repo    string
	Host    string
}

// Encode renders the request line's content (without pkt-line framing).
func (r RequestLine) Encode() string {
	return fmt.Sprintf("%s /%s\x00host=%s\x00\x00version=1\x00", r.Service, strings.TrimPrefix(r.Repo, "/"), r.Host)
}

// WriteRequestLine frames and writes r as a single pkt-line.
func WriteRequestLine(w io.Writer, r RequestLine) error {
	return pktline.WriteBytes(w, []byte(r.Encode()))
}

// ReadRequestLine reads and parses a client request line.
func ReadRequestLine(r *bufio.Reader) (RequestLine, error) {
	content, ok, err := pktline.Read(r)
	if err != nil {
		return RequestLine{}, err
	}
	if !ok {
		return RequestLine{}, errs.NewProtocolError("expected request line, got flush packet")
	}

	parts := strings.SplitN(string(content), "\x00", 2)
	if len(parts) != 2 {
		return RequestLine{}, errs.NewProtocolError("malformed request line %q", content)
	}
	head := strings.SplitN(strings.TrimSpace(parts[0]), " /", 2)
	if len(head) != 2 {
		return RequestLine{}, errs.NewProtocolError("malformed request line %q", content)
	}

	req := RequestLine{Service: Service(head[0]), Repo: head[1]}
	for _, field := range strings.Split(parts[1], "\x00") {
		if strings.HasPrefix(field, "host=") {
			req.Host = strings.TrimPrefix(field, "host=")
		}
	}
	return req, nil
}

// RefAd is one advertised reference.
type RefAd struct {
	Name   string
	Digest hash.Digest
}

// HeadRefName is the synthetic ref name used to advertise the server's
// current HEAD commit alongside its real branch refs.
const HeadRefName = "HEAD"

// AdvertiseRefs writes one pkt-line per ref, HEAD first if present,
// terminated by a flush packet (spec.md §4.11). The first line carries
// an additional trailing NUL-terminated empty capability block, per
// Open Question decision (b): no capability tokens are advertised.
func AdvertiseRefs(w io.Writer, ads []RefAd) error {
	ordered := orderHeadFirst(ads)
	for i, ad := range ordered {
		line := fmt.Sprintf("%s %s", ad.Digest, ad.Name)
		if i == 0 {
			line += "\x00\x00"
		}
		if err := pktline.WriteString(w, line); err != nil {
			return err
		}
	}
	return pktline.WriteFlush(w)
}

func orderHeadFirst(ads []RefAd) []RefAd {
	ordered := make([]RefAd, 0, len(ads))
	for _, ad := range ads {
		if ad.Name == HeadRefName {
			ordered = append(ordered, ad)
		}
	}
	for _, ad := range ads {
		if ad.Name != HeadRefName {
			ordered = append(ordered, ad)
		}
	}
	return ordered
}

// ReadRefAdvertisement reads the ref advertisement block written by
// AdvertiseRefs.
func ReadRefAdvertisement(r *bufio.Reader) ([]RefAd, error) {
	lines, err := pktline.ReadAll(r)
	if err != nil {
		return nil, err
	}
	ads := make([]RefAd, 0, len(lines))
	for _, line := range lines {
		text := string(line)
		if nul := strings.IndexByte(text, '\x00'); nul >= 0 {
			text = text[:nul]
		}
		fields := strings.SplitN(strings.TrimRight(text, "\n"), " ", 2)
		if len(fields) != 2 {
			return nil, errs.NewProtocolError("malformed ref advertisement line %q", line)
		}
		d, err := hash.FromHex(fields[0])
		if err != nil {
			return nil, errs.NewProtocolError("malformed ref digest %q", fields[0])
		}
		ads = append(ads, RefAd{Name: fields[1], Digest: d})
	}
	return ads, nil
}
