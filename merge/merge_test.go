package merge_test

import (
	"testing"

	"github.com/dvcs-go/dvcs/config"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/merge"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/tree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const metaRoot = "/repo/.dvcs"

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

func TestMerge_FastForward(t *testing.T) {
	t.Parallel()
	fs, store := newEnv(t)
	identity := &config.Config{UserName: "Ada", UserMail: "ada@example.com"}

	c1 := commitFile(t, store, hash.Zero, "a.txt", "hello\n", 100)
	c2 := commitFile(t, store, c1, "a.txt", "world\n", 200)

	require.NoError(t, refs.CreateBranch(fs, metaRoot, "master", c1))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "side", c2))
	require.NoError(t, refs.CheckoutTo(fs, store, "/repo", metaRoot, "master"))

	head, err := refs.Open(fs, metaRoot)
	require.NoError(t, err)

	res, err := merge.Run(fs, store, "/repo", metaRoot, head, "side", identity)
	require.NoError(t, err)
	require.Empty(t, res.Modified)
	require.Empty(t, res.Conflicts)

	content, err := afero.ReadFile(fs, "/repo/a.txt")
	require.NoError(t, err)
	require.Equal(t, "world\n", string(content))
}

func TestMerge_ConflictingEdit(t *testing.T) {
	t.Parallel()
	fs, store := newEnv(t)
	identity := &config.Config{UserName: "Ada", UserMail: "ada@example.com"}

	base := commitFile(t, store, hash.Zero, "a.txt", "hello\n", 100)
	masterTip := commitFile(t, store, base, "a.txt", "HELLO\n", 200)
	sideTip := commitFile(t, store, base, "a.txt", "Hola\n", 200)

	require.NoError(t, refs.CreateBranch(fs, metaRoot, "master", masterTip))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "side", sideTip))
	require.NoError(t, refs.CheckoutTo(fs, store, "/repo", metaRoot, "master"))

	head, err := refs.Open(fs, metaRoot)
	require.NoError(t, err)

	res, err := merge.Run(fs, store, "/repo", metaRoot, head, "side", identity)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, res.Conflicts)

	content, err := afero.ReadFile(fs, "/repo/a.txt")
	require.NoError(t, err)
	require.Equal(t, "<<<<<<< HEAD\nHELLO\n=======\nHola\n>>>>>>> Merge Branch\n", string(content))

	mergingBranch, ok, err := refs.Merging(fs, metaRoot)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "side", mergingBranch)
}
