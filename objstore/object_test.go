package objstore_test

import (
	"bytes"
	"testing"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/stretchr/testify/require"
)

func TestObject_CanonicalRoundTrip(t *testing.T) {
	t.Parallel()
	o := objstore.New(objstore.KindBlob, []byte("hello\n"))
	require.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", o.Digest().String())

	parsed, err := objstore.ParseCanonical(o.Canonical())
	require.NoError(t, err)
	require.Equal(t, o.Kind(), parsed.Kind())
	require.Equal(t, o.Payload(), parsed.Payload())
}

func TestObject_CompressDecompressRoundTrip(t *testing.T) {
	t.Parallel()
	o := objstore.New(objstore.KindTree, []byte("some tree payload"))
	compressed, err := o.Compress()
	require.NoError(t, err)
	require.NotEmpty(t, compressed)

	out, err := hash.Decompress(bytes.NewReader(compressed))
	require.NoError(t, err)
	require.Equal(t, o.Canonical(), out)
}

func TestParseCanonical_RejectsBadSize(t *testing.T) {
	t.Parallel()
	_, err := objstore.ParseCanonical([]byte("blob 10\x00short"))
	require.ErrorIs(t, err, objstore.ErrFormat)
}

func TestParseCanonical_RejectsUnknownKind(t *testing.T) {
	t.Parallel()
	_, err := objstore.ParseCanonical([]byte("widget 5\x00hello"))
	require.Error(t, err)
}

func TestKindFromString(t *testing.T) {
	t.Parallel()
	for _, k := range []objstore.Kind{objstore.KindBlob, objstore.KindTree, objstore.KindCommit} {
		parsed, err := objstore.KindFromString(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
	_, err := objstore.KindFromString("bogus")
	require.ErrorIs(t, err, objstore.ErrUnknownKind)
}
