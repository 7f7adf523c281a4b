package hash_test

import (
	"bytes"
	"testing"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/stretchr/testify/require"
)

func TestHexRoundTrip(t *testing.T) {
	t.Parallel()
	d := hash.Sum([]byte("hello\n"))
	hex := d.String()

	parsed, err := hash.FromHex(hex)
	require.NoError(t, err)
	require.Equal(t, d, parsed)
	require.Equal(t, hex, parsed.String())

	raw, err := hash.FromRaw(d.Bytes())
	require.NoError(t, err)
	require.Equal(t, d, raw)
}

func TestFromHex_Invalid(t *testing.T) {
	t.Parallel()
	_, err := hash.FromHex("not-a-hash")
	require.ErrorIs(t, err, hash.ErrInvalidHash)

	_, err = hash.FromHex("zz013625030ba8dba906f756967f9e9ca394464")
	require.Error(t, err)
}

func TestSum_KnownVector(t *testing.T) {
	t.Parallel()
	// "blob 6\x00hello\n" sha1
	d := hash.Sum([]byte("blob 6\x00hello\n"))
	require.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", d.String())
}

func TestZlibRoundTrip(t *testing.T) {
	t.Parallel()
	orig := []byte("tree abcdef\nparent 123\n\nhello world\n")
	compressed, err := hash.Compress(orig)
	require.NoError(t, err)

	out, err := hash.Decompress(bytes.NewReader(compressed))
	require.NoError(t, err)
	require.Equal(t, orig, out)
}
