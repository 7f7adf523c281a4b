package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dvcs-go/dvcs/config"
	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/merge"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/wire/pack"
	"github.com/dvcs-go/dvcs/wire/pktline"
	"github.com/spf13/afero"
)

const refsHeadsPrefix = "refs/heads/"

// Fetch runs the client side of an upload-pack request for every
// branch the server advertises: it opens the connection, retrieves the
// transitive object closure for every advertised branch tip, persists
// it locally, and updates the matching refs/remote/<remoteName>/<branch>
// tracking refs (spec.md §4.11).
func Fetch(conn io.ReadWriter, req RequestLine, store *objstore.Store, fs afero.Fs, metaRoot, remoteName string) ([]RefAd, error) {
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	req.Service = UploadPack
	if err := WriteRequestLine(rw, req); err != nil {
		return nil, err
	}
	if err := rw.Flush(); err != nil {
		return nil, err
	}

	ads, err := ReadRefAdvertisement(rw.Reader)
	if err != nil {
		return nil, err
	}

	var wants []hash.Digest
	for _, ad := range ads {
		if ad.Name == HeadRefName || ad.Digest.IsZero() {
			continue
		}
		wants = append(wants, ad.Digest)
	}

	objs, err := sendWantsAndReadPack(rw, wants)
	if err != nil {
		return nil, err
	}
	for _, o := range objs {
		if _, err := store.WriteObject(o); err != nil {
			return nil, err
		}
	}

	for _, ad := range ads {
		if ad.Name == HeadRefName {
			continue
		}
		branch := strings.TrimPrefix(ad.Name, refsHeadsPrefix)
		if err := refs.SetRemoteTracking(fs, metaRoot, remoteName+"/"+branch, ad.Digest); err != nil {
			return nil, err
		}
	}
	return ads, nil
}

// sendWantsAndReadPack sends wants on an already ref-advertised
// connection and decodes the server's NAK-prefixed packfile reply.
func sendWantsAndReadPack(rw *bufio.ReadWriter, wants []hash.Digest) ([]*objstore.Object, error) {
	if err := SendWants(rw, wants); err != nil {
		return nil, err
	}
	if err := rw.Flush(); err != nil {
		return nil, err
	}

	content, ok, err := pktline.Read(rw.Reader)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(string(content)) != "NAK" {
		return nil, errs.NewProtocolError("expected NAK packet, got %q", content)
	}
	return pack.Decode(rw.Reader)
}

// Clone runs a full clone: it initializes the object store, fetches
// every branch the server advertises, records the remote binding,
// creates a local branch for each remote-tracking ref with an upstream
// binding, and checks out the branch the server's HEAD points to (or
// refs.DefaultBranch if HEAD isn't among the advertised refs).
func Clone(conn io.ReadWriter, req RequestLine, store *objstore.Store, fs afero.Fs, workTree, metaRoot, remoteName, remoteURL string) error {
	if err := store.Init(); err != nil {
		return err
	}

	ads, err := Fetch(conn, req, store, fs, metaRoot, remoteName)
	if err != nil {
		return err
	}

	remoteCfg, err := refs.LoadRemoteConfig(fs, metaRoot)
	if err != nil {
		return err
	}
	if err := remoteCfg.Add(remoteName, remoteURL); err != nil {
		return err
	}

	var headDigest hash.Digest
	for _, ad := range ads {
		if ad.Name == HeadRefName {
			headDigest = ad.Digest
		}
	}

	checkoutBranch := refs.DefaultBranch
	for _, ad := range ads {
		if ad.Name == HeadRefName {
			continue
		}
		branch := strings.TrimPrefix(ad.Name, refsHeadsPrefix)
		if err := refs.CreateBranch(fs, metaRoot, branch, ad.Digest); err != nil {
			return err
		}
		remoteCfg.SetUpstream(branch, remoteName, branch)
		if !headDigest.IsZero() && ad.Digest == headDigest {
			checkoutBranch = branch
		}
	}

	if err := remoteCfg.Save(fs, metaRoot); err != nil {
		return err
	}
	return refs.CheckoutTo(fs, store, workTree, metaRoot, checkoutBranch)
}

// Push runs the client side of a receive-pack request for branch: it
// advertises the single ref update for branch's current tip, sends the
// transitive closure of objects not already reachable from the
// server's previous tip, and returns the server's ref advertisement as
// it stood before the update.
func Push(conn io.ReadWriter, req RequestLine, store *objstore.Store, fs afero.Fs, metaRoot, branch string) ([]RefAd, error) {
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	req.Service = ReceivePack
	if err := WriteRequestLine(rw, req); err != nil {
		return nil, err
	}
	if err := rw.Flush(); err != nil {
		return nil, err
	}

	ads, err := ReadRefAdvertisement(rw.Reader)
	if err != nil {
		return nil, err
	}

	tip, ok, err := refs.BranchTip(fs, metaRoot, branch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NewRepositoryError("branch %q has no commits to push", branch)
	}

	refName := refsHeadsPrefix + branch
	var old hash.Digest
	for _, ad := range ads {
		if ad.Name == refName {
			old = ad.Digest
		}
	}

	head, err := refs.Open(fs, metaRoot)
	if err != nil {
		return nil, err
	}
	headBranch := ""
	if head.Name == branch {
		headBranch = branch
	}

	var have []hash.Digest
	if !old.IsZero() {
		have = []hash.Digest{old}
	}
	objs, err := ReachableObjects(store, []hash.Digest{tip}, have)
	if err != nil {
		return nil, err
	}

	updates := []RefUpdate{{Old: old, New: tip, Ref: refName}}
	if err := WriteRefUpdates(rw, updates, headBranch); err != nil {
		return nil, err
	}
	if err := pack.Encode(rw, objs); err != nil {
		return nil, err
	}
	return ads, rw.Flush()
}

// Pull fetches remoteName and merges its tracking ref for the current
// branch's upstream (or the current branch name itself, absent an
// upstream binding) into the checked-out branch.
func Pull(conn io.ReadWriter, req RequestLine, store *objstore.Store, fs afero.Fs, workTree, metaRoot, remoteName string, identity *config.Config) (*merge.Result, error) {
	if _, err := Fetch(conn, req, store, fs, metaRoot, remoteName); err != nil {
		return nil, err
	}

	head, err := refs.Open(fs, metaRoot)
	if err != nil {
		return nil, err
	}

	remoteCfg, err := refs.LoadRemoteConfig(fs, metaRoot)
	if err != nil {
		return nil, err
	}
	remoteBranch := head.Name
	if up, ok := remoteCfg.Upstream(head.Name); ok {
		remoteBranch = up.RemoteBranch
	}

	tip, ok, err := refs.RemoteTrackingTip(fs, metaRoot, remoteName+"/"+remoteBranch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NewRepositoryError("no remote-tracking ref for %s/%s", remoteName, remoteBranch)
	}

	tempBranch := fmt.Sprintf("__pull_%s_%s", remoteName, remoteBranch)
	if err := refs.CreateBranch(fs, metaRoot, tempBranch, tip); err != nil {
		return nil, err
	}
	defer func() { _ = refs.DeleteBranch(fs, metaRoot, tempBranch) }()

	return merge.Run(fs, store, workTree, metaRoot, head, tempBranch, identity)
}
