package objstore_test

import (
	"testing"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/stretchr/testify/require"
)

func sampleSig() objstore.Signature {
	return objstore.Signature{
		Name: "alice",
		Mail: "a@ex",
		Time: 1566115917,
		TZ:   "-0700",
	}
}

func TestCommit_EncodeDecodeRoundTrip_NoParents(t *testing.T) {
	t.Parallel()
	c := &objstore.Commit{
		Tree:      hash.Sum([]byte("tree-content")),
		Author:    sampleSig(),
		Committer: sampleSig(),
		Message:   "first",
	}

	decoded, err := objstore.DecodeCommit(c.Encode())
	require.NoError(t, err)
	require.Equal(t, c.Tree, decoded.Tree)
	require.Empty(t, decoded.Parents)
	require.Equal(t, c.Author, decoded.Author)
	require.Equal(t, c.Committer, decoded.Committer)
	require.Equal(t, "first\n", decoded.Message)
	require.False(t, decoded.IsMerge())
}

func TestCommit_EncodeDecodeRoundTrip_MergeCommit(t *testing.T) {
	t.Parallel()
	p1 := hash.Sum([]byte("p1"))
	p2 := hash.Sum([]byte("p2"))
	c := &objstore.Commit{
		Tree:      hash.Sum([]byte("tree-content")),
		Parents:   []hash.Digest{p1, p2},
		Author:    sampleSig(),
		Committer: sampleSig(),
		Message:   "merge branches",
	}

	decoded, err := objstore.DecodeCommit(c.Encode())
	require.NoError(t, err)
	require.Equal(t, []hash.Digest{p1, p2}, decoded.Parents)
	require.True(t, decoded.IsMerge())
}

func TestSignature_ParseRoundTrip(t *testing.T) {
	t.Parallel()
	sig := sampleSig()
	parsed, err := objstore.ParseSignature([]byte(sig.Encode()))
	require.NoError(t, err)
	require.Equal(t, sig, parsed)
}

func TestDecodeCommit_RejectsMalformed(t *testing.T) {
	t.Parallel()
	_, err := objstore.DecodeCommit([]byte("not a commit"))
	require.ErrorIs(t, err, objstore.ErrFormat)
}
