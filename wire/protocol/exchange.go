package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/wire/pack"
	"github.com/dvcs-go/dvcs/wire/pktline"
	"github.com/spf13/afero"
)

const wantPrefix = "want "

// ReadWants reads "want <digest>" pkt-lines up to the flush packet,
// then the trailing "done" pkt-line that closes an upload-pack request
// (spec.md §4.11).
func ReadWants(r *bufio.Reader) ([]hash.Digest, error) {
	var wants []hash.Digest
	for {
		content, ok, err := pktline.Read(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		line := strings.TrimSpace(string(content))
		if !strings.HasPrefix(line, wantPrefix) {
			return nil, errs.NewProtocolError("malformed want line %q", line)
		}
		d, err := hash.FromHex(strings.TrimPrefix(line, wantPrefix))
		if err != nil {
			return nil, errs.NewProtocolError("malformed want digest %q", line)
		}
		wants = append(wants, d)
	}

	content, ok, err := pktline.Read(r)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(string(content)) != "done" {
		return nil, errs.NewProtocolError("expected done packet, got %q", content)
	}
	return wants, nil
}

// SendWants writes the want lines and the closing done packet that
// open an upload-pack request.
func SendWants(w io.Writer, wants []hash.Digest) error {
	for _, d := range wants {
		if err := pktline.WriteString(w, wantPrefix+d.String()); err != nil {
			return err
		}
	}
	if err := pktline.WriteFlush(w); err != nil {
		return err
	}
	return pktline.WriteString(w, "done")
}

// ServeUploadPack runs the server side of a fetch/clone: it advertises
// refs, reads the client's wants, and streams a packfile containing the
// transitive closure of objects reachable from those wants (spec.md
// §4.11).
func ServeUploadPack(rw *bufio.ReadWriter, store *objstore.Store, ads []RefAd) error {
	if err := AdvertiseRefs(rw, ads); err != nil {
		return err
	}
	if err := rw.Flush(); err != nil {
		return err
	}

	wants, err := ReadWants(rw.Reader)
	if err != nil {
		return err
	}

	objs, err := ReachableObjects(store, wants, nil)
	if err != nil {
		return err
	}

	if err := pktline.WriteString(rw, "NAK"); err != nil {
		return err
	}
	if err := pack.Encode(rw, objs); err != nil {
		return err
	}
	return rw.Flush()
}

// FetchObjects runs the client side of a fetch/clone over rw: it reads
// the server's ref advertisement, sends wants for every ref tip the
// caller chooses to fetch, and decodes the returned packfile.
func FetchObjects(rw *bufio.ReadWriter, wants []hash.Digest) ([]RefAd, []*objstore.Object, error) {
	ads, err := ReadRefAdvertisement(rw.Reader)
	if err != nil {
		return nil, nil, err
	}

	if err := SendWants(rw, wants); err != nil {
		return nil, nil, err
	}
	if err := rw.Flush(); err != nil {
		return nil, nil, err
	}

	content, ok, err := pktline.Read(rw.Reader)
	if err != nil {
		return nil, nil, err
	}
	if !ok || strings.TrimSpace(string(content)) != "NAK" {
		return nil, nil, errs.NewProtocolError("expected NAK packet, got %q", content)
	}

	objs, err := pack.Decode(rw.Reader)
	if err != nil {
		return nil, nil, err
	}
	return ads, objs, nil
}

// RefUpdate is one "<old> <new> <refname>" line of a push (spec.md
// §4.11). New == hash.Zero deletes the ref.
type RefUpdate struct {
	Old, New hash.Digest
	Ref      string
}

const headUpdateField = "HEAD="

// WriteRefUpdates writes the client's requested ref changes. The first
// line carries a trailing NUL plus an optional "HEAD=<branch>" field
// when headBranch is non-empty, per spec.md §4.11.
func WriteRefUpdates(w io.Writer, updates []RefUpdate, headBranch string) error {
	for i, u := range updates {
		line := fmt.Sprintf("%s %s %s", u.Old, u.New, u.Ref)
		if i == 0 {
			line += "\x00"
			if headBranch != "" {
				line += headUpdateField + headBranch
			}
		}
		if err := pktline.WriteString(w, line); err != nil {
			return err
		}
	}
	return pktline.WriteFlush(w)
}

// ReadRefUpdates reads the ref changes sent by a pushing client.
func ReadRefUpdates(r *bufio.Reader) (updates []RefUpdate, headBranch string, err error) {
	lines, err := pktline.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	for i, line := range lines {
		text := string(line)
		if nul := strings.IndexByte(text, '\x00'); nul >= 0 {
			if i == 0 {
				if field := text[nul+1:]; strings.HasPrefix(field, headUpdateField) {
					headBranch = strings.TrimPrefix(field, headUpdateField)
				}
			}
			text = text[:nul]
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, "", errs.NewProtocolError("malformed ref update line %q", line)
		}
		oldD, err := hash.FromHex(fields[0])
		if err != nil {
			return nil, "", errs.NewProtocolError("malformed old digest %q", fields[0])
		}
		newD, err := hash.FromHex(fields[1])
		if err != nil {
			return nil, "", errs.NewProtocolError("malformed new digest %q", fields[1])
		}
		updates = append(updates, RefUpdate{Old: oldD, New: newD, Ref: fields[2]})
	}
	return updates, headBranch, nil
}

// ServeReceivePack runs the server side of a push: it advertises refs,
// reads the client's ref updates and packfile, persists every new
// object, and applies the ref updates (spec.md §4.11).
func ServeReceivePack(rw *bufio.ReadWriter, fs afero.Fs, store *objstore.Store, metaRoot string, ads []RefAd) error {
	if err := AdvertiseRefs(rw, ads); err != nil {
		return err
	}
	if err := rw.Flush(); err != nil {
		return err
	}

	updates, headBranch, err := ReadRefUpdates(rw.Reader)
	if err != nil {
		return err
	}

	objs, err := pack.Decode(rw.Reader)
	if err != nil {
		return err
	}
	for _, o := range objs {
		if _, err := store.WriteObject(o); err != nil {
			return err
		}
	}

	for _, u := range updates {
		name := strings.TrimPrefix(u.Ref, "refs/heads/")
		if u.New.IsZero() {
			if err := refs.DeleteBranch(fs, metaRoot, name); err != nil {
				return err
			}
			continue
		}
		if err := refs.SetBranchTip(fs, metaRoot, name, u.New); err != nil {
			return err
		}
	}

	if headBranch != "" {
		if err := refs.SetHead(fs, metaRoot, headBranch); err != nil {
			return err
		}
	}
	return nil
}

// PushObjects runs the client side of a push over rw: it reads the
// server's ref advertisement, sends the requested ref updates, and
// streams a packfile built from the given objects.
func PushObjects(rw *bufio.ReadWriter, updates []RefUpdate, headBranch string, objs []*objstore.Object) ([]RefAd, error) {
	ads, err := ReadRefAdvertisement(rw.Reader)
	if err != nil {
		return nil, err
	}

	if err := WriteRefUpdates(rw, updates, headBranch); err != nil {
		return nil, err
	}
	if err := pack.Encode(rw, objs); err != nil {
		return nil, err
	}
	return ads, rw.Flush()
}
