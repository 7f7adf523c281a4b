package refs_test

import (
	"testing"
	"time"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/tree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const metaRoot = "/repo/.dvcs"

func newTestStore(t *testing.T) (afero.Fs, *objstore.Store) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := objstore.New(fs, metaRoot)
	require.NoError(t, store.Init())
	return fs, store
}

func TestBranchRef_UnbornThenAttached(t *testing.T) {
	t.Parallel()
	fs, _ := newTestStore(t)

	br, err := refs.Open(fs, metaRoot)
	require.NoError(t, err)
	require.Equal(t, refs.Unborn, br.State)
	require.Equal(t, refs.DefaultBranch, br.Name)

	tip := hash.Sum([]byte("commit-1"))
	require.NoError(t, br.SetLastCommit(tip))

	reopened, err := refs.Open(fs, metaRoot)
	require.NoError(t, err)
	require.Equal(t, refs.Attached, reopened.State)
	require.Equal(t, tip, reopened.Tip)
	require.Equal(t, refs.DefaultBranch, reopened.Name)
}

func TestCreateDeleteBranch(t *testing.T) {
	t.Parallel()
	fs, _ := newTestStore(t)
	tip := hash.Sum([]byte("x"))

	require.NoError(t, refs.CreateBranch(fs, metaRoot, "feature", tip))
	err := refs.CreateBranch(fs, metaRoot, "feature", tip)
	require.ErrorIs(t, err, refs.ErrBranchExists)

	got, ok, err := refs.BranchTip(fs, metaRoot, "feature")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tip, got)

	require.NoError(t, refs.DeleteBranch(fs, metaRoot, "feature"))
	err = refs.DeleteBranch(fs, metaRoot, "feature")
	require.ErrorIs(t, err, refs.ErrBranchNotFound)
}

func TestListBranches(t *testing.T) {
	t.Parallel()
	fs, _ := newTestStore(t)
	tip := hash.Sum([]byte("x"))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "b", tip))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "a", tip))

	names, err := refs.ListBranches(fs, metaRoot)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
}

func TestRemoteConfig_AddRemoveUpstream(t *testing.T) {
	t.Parallel()
	fs, _ := newTestStore(t)

	cfg, err := refs.LoadRemoteConfig(fs, metaRoot)
	require.NoError(t, err)
	require.NoError(t, cfg.Add("origin", "dvcs://example/repo"))
	err = cfg.Add("origin", "dvcs://other")
	require.ErrorIs(t, err, refs.ErrRemoteExists)

	cfg.SetUpstream("master", "origin", "master")
	require.NoError(t, cfg.Save(fs, metaRoot))

	reopened, err := refs.LoadRemoteConfig(fs, metaRoot)
	require.NoError(t, err)
	r, ok := reopened.Get("origin")
	require.True(t, ok)
	require.Equal(t, "dvcs://example/repo", r.URL)
	u, ok := reopened.Upstream("master")
	require.True(t, ok)
	require.Equal(t, "origin", u.RemoteName)

	require.NoError(t, reopened.Remove("origin"))
	_, ok = reopened.Upstream("master")
	require.False(t, ok)
}

func TestTags_CreateGetDelete(t *testing.T) {
	t.Parallel()
	fs, _ := newTestStore(t)
	tag := refs.Tag{
		Name:      "v1.0",
		Creator:   "Ada <ada@example.com>",
		Commit:    hash.Sum([]byte("c1")),
		Message:   "first release",
		CreatedAt: time.Unix(1700000000, 0),
	}
	require.NoError(t, refs.CreateTag(fs, metaRoot, tag))
	err := refs.CreateTag(fs, metaRoot, tag)
	require.ErrorIs(t, err, refs.ErrTagExists)

	got, err := refs.GetTag(fs, metaRoot, "v1.0")
	require.NoError(t, err)
	require.Equal(t, tag.Commit, got.Commit)
	require.Equal(t, tag.Message, got.Message)

	matched, err := refs.MatchTags(fs, metaRoot, "v1.*")
	require.NoError(t, err)
	require.Len(t, matched, 1)

	require.NoError(t, refs.DeleteTag(fs, metaRoot, "v1.0"))
	_, err = refs.GetTag(fs, metaRoot, "v1.0")
	require.ErrorIs(t, err, refs.ErrTagNotFound)
}

func TestCheckoutTo_MaterializesFilesAndUpdatesHEAD(t *testing.T) {
	t.Parallel()
	fs, store := newTestStore(t)

	blobDigest, err := store.Write(objstore.KindBlob, []byte("hello\n"))
	require.NoError(t, err)
	treeDigest, err := tree.BuildFromIndex([]tree.Entry{{Path: "a.txt", Digest: blobDigest}}).Write(store)
	require.NoError(t, err)

	commit := &objstore.Commit{
		Tree:      treeDigest,
		Author:    objstore.Signature{Name: "Ada", Mail: "ada@example.com", Time: 1700000000, TZ: "+0000"},
		Committer: objstore.Signature{Name: "Ada", Mail: "ada@example.com", Time: 1700000000, TZ: "+0000"},
		Message:   "initial",
	}
	commitDigest, err := store.WriteObject(commit.ToObject())
	require.NoError(t, err)
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "master", commitDigest))

	require.NoError(t, refs.CheckoutTo(fs, store, "/repo", metaRoot, "master"))

	content, err := afero.ReadFile(fs, "/repo/a.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hello\n"), content)

	br, err := refs.Open(fs, metaRoot)
	require.NoError(t, err)
	require.Equal(t, "master", br.Name)
	require.Equal(t, refs.Attached, br.State)
}

func TestSwitch_FailsIfLocalExists(t *testing.T) {
	t.Parallel()
	fs, store := newTestStore(t)
	tip := hash.Sum([]byte("x"))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "feature", tip))

	err := refs.Switch(fs, store, "/repo", metaRoot, "feature", "origin/feature")
	require.ErrorIs(t, err, refs.ErrBranchExists)
}
