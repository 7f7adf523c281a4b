package pack_test

import (
	"bytes"
	"testing"

	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/wire/pack"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()
	objs := []*objstore.Object{
		objstore.New(objstore.KindBlob, []byte("hello\n")),
		objstore.New(objstore.KindTree, bytes.Repeat([]byte{0}, 25)),
		objstore.New(objstore.KindCommit, []byte("tree deadbeef\n\nmsg\n")),
	}

	var buf bytes.Buffer
	require.NoError(t, pack.Encode(&buf, objs))

	decoded, err := pack.Decode(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, len(objs))
	for i, o := range objs {
		require.Equal(t, o.Kind(), decoded[i].Kind())
		require.Equal(t, o.Payload(), decoded[i].Payload())
	}
}

func TestEncodeDecode_LargeObjectMultiByteSize(t *testing.T) {
	t.Parallel()
	payload := bytes.Repeat([]byte{'a'}, 1<<20)
	objs := []*objstore.Object{objstore.New(objstore.KindBlob, payload)}

	var buf bytes.Buffer
	require.NoError(t, pack.Encode(&buf, objs))

	decoded, err := pack.Decode(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Equal(t, payload, decoded[0].Payload())
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	t.Parallel()
	_, err := pack.Decode(bytes.NewReader([]byte("NOPE0000000000000")))
	require.Error(t, err)
}
