// Package tree builds hierarchical directory snapshots (objstore.Tree)
// out of a flat list of staged paths, and flattens them back
// (spec.md §4.4).
package tree

import (
	"path"
	"sort"
	"strings"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"golang.org/x/xerrors"
)

// Entry is one staged file: its repository-relative path and blob digest.
type Entry struct {
	Path   string
	Digest hash.Digest
}

// node is an in-memory directory node used while building a Tree.
// Duplicate files within a directory are last-write-wins, matching the
// order entries are inserted in.
type node struct {
	files map[string]hash.Digest
	dirs  map[string]*node
}

func newNode() *node {
	return &node{files: map[string]hash.Digest{}, dirs: map[string]*node{}}
}

// Builder assembles a Tree from a flat index snapshot, one path at a
// time, and persists the sub-trees to an object store.
type Builder struct {
	root *node
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{root: newNode()}
}

// BuildFromIndex inserts every entry into the builder, splitting each
// path on "/".
func BuildFromIndex(entries []Entry) *Builder {
	b := NewBuilder()
	for _, e := range entries {
		b.insert(e.Path, e.Digest)
	}
	return b
}

func (b *Builder) insert(p string, d hash.Digest) {
	parts := strings.Split(path.Clean(p), "/")
	cur := b.root
	for i, part := range parts {
		if i == len(parts)-1 {
			cur.files[part] = d
			continue
		}
		child, ok := cur.dirs[part]
		if !ok {
			child = newNode()
			cur.dirs[part] = child
		}
		cur = child
	}
}

// Write serializes the tree bottom-up, writing every sub-tree to store
// before its parent so the parent's digest is stable when written
// (spec.md §4.4).
func (b *Builder) Write(store *objstore.Store) (hash.Digest, error) {
	return writeNode(store, b.root)
}

func writeNode(store *objstore.Store, n *node) (hash.Digest, error) {
	entries := make([]objstore.TreeEntry, 0, len(n.files)+len(n.dirs))
	for name, d := range n.files {
		entries = append(entries, objstore.TreeEntry{Mode: objstore.ModeFile, Name: name, Digest: d})
	}

	names := make([]string, 0, len(n.dirs))
	for name := range n.dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		childDigest, err := writeNode(store, n.dirs[name])
		if err != nil {
			return hash.Zero, err
		}
		entries = append(entries, objstore.TreeEntry{Mode: objstore.ModeDir, Name: name, Digest: childDigest})
	}

	t, err := objstore.NewTree(entries)
	if err != nil {
		return hash.Zero, xerrors.Errorf("could not build tree: %w", err)
	}
	return store.WriteObject(t.ToObject())
}

// Flatten reads the tree rooted at digest d and returns every
// (relative_path, blob_digest) pair in depth-first order, used by
// commit comparison and working-directory sync (spec.md §4.4).
func Flatten(store *objstore.Store, d hash.Digest) ([]Entry, error) {
	var out []Entry
	if err := flattenInto(store, d, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(store *objstore.Store, d hash.Digest, prefix string, out *[]Entry) error {
	o, err := store.ReadKind(d, objstore.KindTree)
	if err != nil {
		return xerrors.Errorf("could not read tree %s: %w", d, err)
	}
	t, err := objstore.DecodeTree(o.Payload())
	if err != nil {
		return xerrors.Errorf("could not decode tree %s: %w", d, err)
	}

	for _, e := range t.Entries {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		switch e.Mode {
		case objstore.ModeDir:
			if err := flattenInto(store, e.Digest, p, out); err != nil {
				return err
			}
		default:
			*out = append(*out, Entry{Path: p, Digest: e.Digest})
		}
	}
	return nil
}
