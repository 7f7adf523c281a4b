package pr_test

import (
	"testing"

	"github.com/dvcs-go/dvcs/config"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/server/pr"
	"github.com/dvcs-go/dvcs/tree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	reposRoot = "/srv"
	repo      = "demo"
	metaRoot  = "/srv/demo/.dvcs"
	workTree  = "/srv/demo"
)

func newEnv(t *testing.T) (afero.Fs, *objstore.Store) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := objstore.New(fs, metaRoot)
	require.NoError(t, store.Init())
	return fs, store
}

func commitFile(t *testing.T, store *objstore.Store, parent hash.Digest, path, content string, when int64) hash.Digest {
	t.Helper()
	blob, err := store.Write(objstore.KindBlob, []byte(content))
	require.NoError(t, err)
	treeDigest, err := tree.BuildFromIndex([]tree.Entry{{Path: path, Digest: blob}}).Write(store)
	require.NoError(t, err)

	var parents []hash.Digest
	if !parent.IsZero() {
		parents = []hash.Digest{parent}
	}
	sig := objstore.Signature{Name: "Ada", Mail: "ada@example.com", Time: when, TZ: "+0000"}
	c := &objstore.Commit{Tree: treeDigest, Parents: parents, Author: sig, Committer: sig, Message: "c"}
	d, err := store.WriteObject(c.ToObject())
	require.NoError(t, err)
	return d
}

func TestCreate_NoCommonAncestor(t *testing.T) {
	t.Parallel()
	fs, store := newEnv(t)

	base := commitFile(t, store, hash.Zero, "a.txt", "1\n", 100)
	head := commitFile(t, store, hash.Zero, "b.txt", "2\n", 100)
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "master", base))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "feature", head))

	_, err := pr.Create(fs, reposRoot, repo, metaRoot, store, "master", "feature", "t")
	require.Error(t, err)
}

func TestCreateListGetPatchMerge(t *testing.T) {
	t.Parallel()
	fs, store := newEnv(t)
	identity := &config.Config{UserName: "Ada", UserMail: "ada@example.com"}

	c1 := commitFile(t, store, hash.Zero, "a.txt", "hello\n", 100)
	c2 := commitFile(t, store, c1, "b.txt", "world\n", 200)
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "master", c1))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "feature", c2))
	require.NoError(t, refs.CheckoutTo(fs, store, workTree, metaRoot, "master"))

	p, err := pr.Create(fs, reposRoot, repo, metaRoot, store, "master", "feature", "add b")
	require.NoError(t, err)
	require.Equal(t, 1, p.Number)
	require.Equal(t, pr.Open, p.State)
	require.Equal(t, c2, p.CreationCommit)

	all, err := pr.List(fs, reposRoot, repo, "open", "")
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := pr.Get(fs, reposRoot, repo, 1)
	require.NoError(t, err)
	require.Equal(t, "add b", got.Title)

	newTitle := "add b, renamed"
	updated, err := pr.Patch(fs, reposRoot, repo, metaRoot, 1, pr.PatchFields{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, newTitle, updated.Title)

	c3 := commitFile(t, store, c2, "c.txt", "more\n", 300)
	require.NoError(t, refs.SetBranchTip(fs, metaRoot, "feature", c3))

	commits, err := pr.Commits(fs, metaRoot, store, updated)
	require.NoError(t, err)
	require.Equal(t, []hash.Digest{c3}, commits)

	result, merged, err := pr.Merge(fs, reposRoot, repo, metaRoot, store, workTree, 1, identity)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.Equal(t, pr.Closed, merged.State)

	_, _, err = pr.Merge(fs, reposRoot, repo, metaRoot, store, workTree, 1, identity)
	require.Error(t, err)
}
