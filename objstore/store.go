package objstore

import (
	"os"
	"path/filepath"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/internal/errutil"
	"github.com/dvcs-go/dvcs/internal/objpath"
	lru "github.com/golang/groupcache/lru"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Store is the content-addressed filesystem object database described
// in spec.md §4.2. Concurrent writers of the same object are
// idempotent: the object filename *is* the digest, so they always agree
// on the bytes to write, and a write that loses the rename race is
// simply a no-op. The in-memory read cache is not synchronized, so one
// Store value is not safe for use by several goroutines at once.
type Store struct {
	fs       afero.Fs
	metaRoot string

	cache *lru.Cache
}

// DefaultCacheEntries bounds the in-memory LRU used to avoid re-reading
// and re-inflating hot loose objects (commits and trees walked
// repeatedly during history traversal and merge).
const DefaultCacheEntries = 4096

// New returns a Store rooted at metaRoot/objects.
func New(fs afero.Fs, metaRoot string) *Store {
	return &Store{
		fs:       fs,
		metaRoot: metaRoot,
		cache:    lru.New(DefaultCacheEntries),
	}
}

// Init creates the objects directory. Safe to call on an already
// initialized store.
func (s *Store) Init() error {
	return s.fs.MkdirAll(objpath.ObjectsPath(s.metaRoot), 0o755)
}

// Write persists kind/payload under its content digest. A no-op if the
// object is already on disk. Returns the object's digest.
func (s *Store) Write(kind Kind, payload []byte) (hash.Digest, error) {
	return s.WriteObject(New(kind, payload))
}

// WriteObject persists o under its content digest, atomically (write to
// a temp file in the same directory, then rename). No-op if the object
// already exists.
func (s *Store) WriteObject(o *Object) (hash.Digest, error) {
	digest := o.Digest()

	if ok, err := s.Has(digest); err != nil {
		return hash.Zero, err
	} else if ok {
		return digest, nil
	}

	compressed, err := o.Compress()
	if err != nil {
		return hash.Zero, xerrors.Errorf("could not compress object: %w", err)
	}

	path := objpath.LooseObjectPath(s.metaRoot, digest.String())
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return hash.Zero, xerrors.Errorf("could not create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".tmp-obj-*")
	if err != nil {
		return hash.Zero, xerrors.Errorf("could not create temp object file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return hash.Zero, xerrors.Errorf("could not write object payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return hash.Zero, xerrors.Errorf("could not close temp object file: %w", err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		// another writer may have won the race; that's fine, the content
		// is identical since the digest is the same.
		if ok, hasErr := s.Has(digest); hasErr == nil && ok {
			return digest, nil
		}
		return hash.Zero, xerrors.Errorf("could not persist object at %s: %w", path, err)
	}

	s.cache.Add(digest, o)
	return digest, nil
}

// Has reports whether an object with the given digest exists.
func (s *Store) Has(d hash.Digest) (bool, error) {
	path := objpath.LooseObjectPath(s.metaRoot, d.String())
	_, err := s.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, xerrors.Errorf("could not stat %s: %w", path, err)
}

// Read returns the object stored under digest d.
// Returns ErrNotFound if no object has that digest.
func (s *Store) Read(d hash.Digest) (o *Object, err error) {
	if cached, ok := s.cache.Get(d); ok {
		return cached.(*Object), nil
	}

	path := objpath.LooseObjectPath(s.metaRoot, d.String())
	f, err := s.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xerrors.Errorf("%s: %w", d, ErrNotFound)
		}
		return nil, xerrors.Errorf("could not open %s: %w", path, err)
	}
	defer errutil.Close(f, &err)

	raw, err := hash.Decompress(f)
	if err != nil {
		return nil, xerrors.Errorf("could not decompress object %s: %w", d, err)
	}

	o, err = ParseCanonical(raw)
	if err != nil {
		return nil, xerrors.Errorf("could not parse object %s: %w", d, err)
	}

	s.cache.Add(d, o)
	return o, nil
}

// ReadKind reads the object at d and verifies it has the expected kind.
func (s *Store) ReadKind(d hash.Digest, want Kind) (*Object, error) {
	o, err := s.Read(d)
	if err != nil {
		return nil, err
	}
	if o.Kind() != want {
		return nil, xerrors.Errorf("wanted %s, got %s: %w", want, o.Kind(), ErrUnexpectedKind)
	}
	return o, nil
}

// Delete removes the object file for d. Used only by rebase to prune
// orphaned commits after rewriting history (spec.md §4.9).
func (s *Store) Delete(d hash.Digest) error {
	path := objpath.LooseObjectPath(s.metaRoot, d.String())
	s.cache.Remove(d)
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return xerrors.Errorf("could not delete object %s: %w", d, err)
	}
	return nil
}
