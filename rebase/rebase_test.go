package rebase_test

import (
	"testing"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/rebase"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/tree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const metaRoot = "/repo/.dvcs"

func newStore(t *testing.T) (afero.Fs, *objstore.Store) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := objstore.New(fs, metaRoot)
	require.NoError(t, store.Init())
	return fs, store
}

func commitAt(t *testing.T, store *objstore.Store, msg string, when int64, parent hash.Digest) hash.Digest {
	t.Helper()
	blob, err := store.Write(objstore.KindBlob, []byte(msg))
	require.NoError(t, err)
	treeDigest, err := tree.BuildFromIndex([]tree.Entry{{Path: "a.txt", Digest: blob}}).Write(store)
	require.NoError(t, err)

	var parents []hash.Digest
	if !parent.IsZero() {
		parents = []hash.Digest{parent}
	}
	sig := objstore.Signature{Name: "alice", Mail: "a@ex", Time: when, TZ: "+0000"}
	c := &objstore.Commit{Tree: treeDigest, Parents: parents, Author: sig, Committer: sig, Message: msg}
	d, err := store.WriteObject(c.ToObject())
	require.NoError(t, err)
	return d
}

func TestRebase_ReplaysDivergentCommits(t *testing.T) {
	t.Parallel()
	fs, store := newStore(t)

	root := commitAt(t, store, "root", 100, hash.Zero)
	// base gets one additional commit other does not have.
	baseTip := commitAt(t, store, "base-only", 200, root)
	// other diverges from root with two commits of its own.
	otherC1 := commitAt(t, store, "other-1", 150, root)
	otherTip := commitAt(t, store, "other-2", 160, otherC1)

	require.NoError(t, refs.CreateBranch(fs, metaRoot, "base", baseTip))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "other", otherTip))

	base, err := refs.Open(fs, metaRoot)
	require.NoError(t, err)
	base.Name = "base"
	base.Tip = baseTip
	other, err := refs.Open(fs, metaRoot)
	require.NoError(t, err)
	other.Name = "other"
	other.Tip = otherTip

	require.NoError(t, rebase.Run(fs, store, metaRoot, base, other))

	newTip, ok, err := refs.BranchTip(fs, metaRoot, "other")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, otherTip, newTip)

	o, err := store.ReadKind(newTip, objstore.KindCommit)
	require.NoError(t, err)
	c, err := objstore.DecodeCommit(o.Payload())
	require.NoError(t, err)
	require.Equal(t, "other-2", c.Message)
	require.Len(t, c.Parents, 1)

	parentObj, err := store.ReadKind(c.Parents[0], objstore.KindCommit)
	require.NoError(t, err)
	parentCommit, err := objstore.DecodeCommit(parentObj.Payload())
	require.NoError(t, err)
	require.Equal(t, "other-1", parentCommit.Message)
	require.Equal(t, []hash.Digest{baseTip}, parentCommit.Parents)

	_, err = store.Read(otherTip)
	require.Error(t, err)
	_, err = store.Read(otherC1)
	require.Error(t, err)
}

func TestRebase_FailsOnSameBranch(t *testing.T) {
	t.Parallel()
	fs, store := newStore(t)

	root := commitAt(t, store, "root", 100, hash.Zero)
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "master", root))

	br, err := refs.Open(fs, metaRoot)
	require.NoError(t, err)

	err = rebase.Run(fs, store, metaRoot, br, br)
	require.Error(t, err)
}
