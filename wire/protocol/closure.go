package protocol

import (
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/history"
	"github.com/dvcs-go/dvcs/objstore"
	"golang.org/x/xerrors"
)

// ReachableObjects returns every commit, tree and blob object reachable
// from wants, skipping anything already reachable from any digest in
// have (used by receive-pack to send only what the server doesn't
// already have, and by upload-pack with an empty have set).
func ReachableObjects(store *objstore.Store, wants, have []hash.Digest) ([]*objstore.Object, error) {
	exclude := map[hash.Digest]bool{}
	for _, h := range have {
		if h.IsZero() {
			continue
		}
		ancestors, err := history.Ancestors(store, h)
		if err != nil {
			return nil, err
		}
		for _, d := range ancestors {
			exclude[d] = true
			if err := collectTreeBlobs(store, d, exclude); err != nil {
				return nil, err
			}
		}
	}

	seen := map[hash.Digest]bool{}
	var objs []*objstore.Object
	for _, w := range wants {
		if w.IsZero() {
			continue
		}
		ancestors, err := history.Ancestors(store, w)
		if err != nil {
			return nil, err
		}
		for _, d := range ancestors {
			if exclude[d] || seen[d] {
				continue
			}
			seen[d] = true
			o, err := store.ReadKind(d, objstore.KindCommit)
			if err != nil {
				return nil, xerrors.Errorf("could not read commit %s: %w", d, err)
			}
			objs = append(objs, o)

			c, err := objstore.DecodeCommit(o.Payload())
			if err != nil {
				return nil, xerrors.Errorf("could not decode commit %s: %w", d, err)
			}
			treeObjs, err := collectTree(store, c.Tree, seen, exclude)
			if err != nil {
				return nil, err
			}
			objs = append(objs, treeObjs...)
		}
	}
	return objs, nil
}

// collectTree walks the tree rooted at d, returning every tree/blob
// object not already in seen or exclude, marking each one it returns
// as seen.
func collectTree(store *objstore.Store, d hash.Digest, seen, exclude map[hash.Digest]bool) ([]*objstore.Object, error) {
	if d.IsZero() || seen[d] || exclude[d] {
		return nil, nil
	}
	seen[d] = true

	o, err := store.ReadKind(d, objstore.KindTree)
	if err != nil {
		return nil, xerrors.Errorf("could not read tree %s: %w", d, err)
	}
	t, err := objstore.DecodeTree(o.Payload())
	if err != nil {
		return nil, xerrors.Errorf("could not decode tree %s: %w", d, err)
	}

	objs := []*objstore.Object{o}
	for _, e := range t.Entries {
		if e.Mode == objstore.ModeDir {
			sub, err := collectTree(store, e.Digest, seen, exclude)
			if err != nil {
				return nil, err
			}
			objs = append(objs, sub...)
			continue
		}
		if seen[e.Digest] || exclude[e.Digest] {
			continue
		}
		seen[e.Digest] = true
		blob, err := store.ReadKind(e.Digest, objstore.KindBlob)
		if err != nil {
			return nil, xerrors.Errorf("could not read blob %s: %w", e.Digest, err)
		}
		objs = append(objs, blob)
	}
	return objs, nil
}

// collectTreeBlobs marks every tree/blob digest reachable from commit d
// as excluded, without returning objects; used to build the have-side
// exclusion set.
func collectTreeBlobs(store *objstore.Store, d hash.Digest, exclude map[hash.Digest]bool) error {
	o, err := store.ReadKind(d, objstore.KindCommit)
	if err != nil {
		return xerrors.Errorf("could not read commit %s: %w", d, err)
	}
	c, err := objstore.DecodeCommit(o.Payload())
	if err != nil {
		return xerrors.Errorf("could not decode commit %s: %w", d, err)
	}
	return markTree(store, c.Tree, exclude)
}

func markTree(store *objstore.Store, d hash.Digest, exclude map[hash.Digest]bool) error {
	if d.IsZero() || exclude[d] {
		return nil
	}
	exclude[d] = true

	o, err := store.ReadKind(d, objstore.KindTree)
	if err != nil {
		return xerrors.Errorf("could not read tree %s: %w", d, err)
	}
	t, err := objstore.DecodeTree(o.Payload())
	if err != nil {
		return xerrors.Errorf("could not decode tree %s: %w", d, err)
	}
	for _, e := range t.Entries {
		if e.Mode == objstore.ModeDir {
			if err := markTree(store, e.Digest, exclude); err != nil {
				return err
			}
			continue
		}
		exclude[e.Digest] = true
	}
	return nil
}
