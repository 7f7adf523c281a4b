package history_test

import (
	"testing"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/history"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *objstore.Store {
	t.Helper()
	fs := afero.NewMemMapFs()
	s := objstore.New(fs, "/repo/.dvcs")
	require.NoError(t, s.Init())
	return s
}

func commitAt(t *testing.T, store *objstore.Store, msg string, when int64, parents ...hash.Digest) hash.Digest {
	t.Helper()
	treeDigest, err := store.Write(objstore.KindTree, []byte{})
	require.NoError(t, err)
	c := &objstore.Commit{
		Tree:      treeDigest,
		Parents:   parents,
		Author:    objstore.Signature{Name: "Ada", Mail: "ada@example.com", Time: when, TZ: "+0000"},
		Committer: objstore.Signature{Name: "Ada", Mail: "ada@example.com", Time: when, TZ: "+0000"},
		Message:   msg,
	}
	d, err := store.WriteObject(c.ToObject())
	require.NoError(t, err)
	return d
}

func TestAncestors_LinearChain(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	c1 := commitAt(t, store, "c1", 100)
	c2 := commitAt(t, store, "c2", 200, c1)
	c3 := commitAt(t, store, "c3", 300, c2)

	got, err := history.Ancestors(store, c3)
	require.NoError(t, err)
	require.Equal(t, []hash.Digest{c3, c2, c1}, got)
}

func TestLastCommonAncestor_Identity(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	c1 := commitAt(t, store, "c1", 100)

	lca, err := history.LastCommonAncestor(store, c1, c1)
	require.NoError(t, err)
	require.Equal(t, c1, lca)
}

func TestLastCommonAncestor_OfCommitAndItsAncestor(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	c1 := commitAt(t, store, "c1", 100)
	c2 := commitAt(t, store, "c2", 200, c1)

	lca, err := history.LastCommonAncestor(store, c2, c1)
	require.NoError(t, err)
	require.Equal(t, c1, lca)
}

func TestLastCommonAncestor_Disjoint(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	a := commitAt(t, store, "a", 100)
	b := commitAt(t, store, "b", 100)

	lca, err := history.LastCommonAncestor(store, a, b)
	require.NoError(t, err)
	require.True(t, lca.IsZero())
}

func TestAncestors_MergeCommitIncludesBothParents(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	base := commitAt(t, store, "base", 100)
	left := commitAt(t, store, "left", 200, base)
	right := commitAt(t, store, "right", 300, base)
	merge := commitAt(t, store, "merge", 400, left, right)

	got, err := history.Ancestors(store, merge)
	require.NoError(t, err)
	require.Contains(t, got, base)
	require.Contains(t, got, left)
	require.Contains(t, got, right)
	require.Equal(t, merge, got[0])

	seen := map[hash.Digest]bool{}
	for _, d := range got {
		require.False(t, seen[d], "duplicate ancestor %s", d)
		seen[d] = true
	}
}
