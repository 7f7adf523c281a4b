package objstore_test

import (
	"testing"

	"github.com/dvcs-go/dvcs/objstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *objstore.Store {
	t.Helper()
	fs := afero.NewMemMapFs()
	s := objstore.New(fs, "/repo/.dvcs")
	require.NoError(t, s.Init())
	return s
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	d, err := s.Write(objstore.KindBlob, []byte("hello\n"))
	require.NoError(t, err)
	require.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", d.String())

	o, err := s.Read(d)
	require.NoError(t, err)
	require.Equal(t, objstore.KindBlob, o.Kind())
	require.Equal(t, []byte("hello\n"), o.Payload())
}

func TestStore_WriteIsIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	d1, err := s.Write(objstore.KindBlob, []byte("same content"))
	require.NoError(t, err)
	d2, err := s.Write(objstore.KindBlob, []byte("same content"))
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestStore_ReadMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	d, err := s.Write(objstore.KindBlob, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(d))

	_, err = s.Read(d)
	require.ErrorIs(t, err, objstore.ErrNotFound)
}

func TestStore_ReadKindMismatch(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	d, err := s.Write(objstore.KindBlob, []byte("x"))
	require.NoError(t, err)

	_, err = s.ReadKind(d, objstore.KindTree)
	require.ErrorIs(t, err, objstore.ErrUnexpectedKind)
}

func TestStore_Has(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	d, err := s.Write(objstore.KindBlob, []byte("x"))
	require.NoError(t, err)

	ok, err := s.Has(d)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Delete(d))
	ok, err = s.Has(d)
	require.NoError(t, err)
	require.False(t, ok)
}
