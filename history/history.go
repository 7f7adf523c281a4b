// Package history implements the DAG traversal algorithms that drive
// merge, log, and rebase (spec.md §4.5): ancestor walks and
// last-common-ancestor. Grounded on the walk/iterate style of
// Nivl-git-go's cmd/git-go/log.go (single-parent chain walk); the
// two-parent interleave is new, since no example in the pack implements
// it — the exact truncation boundary is one of spec.md's flagged Open
// Questions, re-derived here from the §8 scenario tests rather than
// copied arithmetic.
package history

import (
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"golang.org/x/xerrors"
)

type commitRef struct {
	digest hash.Digest
	commit *objstore.Commit
}

func loadCommit(store *objstore.Store, d hash.Digest) (*objstore.Commit, error) {
	o, err := store.ReadKind(d, objstore.KindCommit)
	if err != nil {
		return nil, xerrors.Errorf("could not read commit %s: %w", d, err)
	}
	c, err := objstore.DecodeCommit(o.Payload())
	if err != nil {
		return nil, xerrors.Errorf("could not decode commit %s: %w", d, err)
	}
	return c, nil
}

// Ancestors returns every commit reachable from start (start included),
// newest-first, de-duplicated across the whole walk (spec.md §4.5).
func Ancestors(store *objstore.Store, start hash.Digest) ([]hash.Digest, error) {
	seen := map[hash.Digest]bool{}
	var out []hash.Digest
	if err := walk(store, start, seen, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(store *objstore.Store, d hash.Digest, seen map[hash.Digest]bool, out *[]hash.Digest) error {
	if d.IsZero() || seen[d] {
		return nil
	}
	c, err := loadCommit(store, d)
	if err != nil {
		return err
	}
	seen[d] = true
	*out = append(*out, d)

	switch len(c.Parents) {
	case 0:
		return nil
	case 1:
		return walk(store, c.Parents[0], seen, out)
	case 2:
		if err := walkMerge(store, c.Parents[0], c.Parents[1], seen, out); err != nil {
			return err
		}
		return nil
	default:
		return xerrors.Errorf("commit %s has %d parents: %w", d, len(c.Parents), objstore.ErrFormat)
	}
}

// walkMerge interleaves the two parent sub-histories by author-date
// descending, truncated at their last common ancestor, then continues
// the walk from that common ancestor onward.
func walkMerge(store *objstore.Store, p1, p2 hash.Digest, seen map[hash.Digest]bool, out *[]hash.Digest) error {
	lca, err := LastCommonAncestor(store, p1, p2)
	if err != nil {
		return err
	}

	chain1, err := chainUntil(store, p1, lca)
	if err != nil {
		return err
	}
	chain2, err := chainUntil(store, p2, lca)
	if err != nil {
		return err
	}

	for _, cr := range interleaveByDateDesc(chain1, chain2) {
		if cr.digest == lca || seen[cr.digest] {
			continue
		}
		seen[cr.digest] = true
		*out = append(*out, cr.digest)
	}

	if lca.IsZero() {
		return nil
	}
	return walk(store, lca, seen, out)
}

// chainUntil walks start's single-path-preferring history, recursing
// into both branches of any merge it meets, and stops descending past
// stop (inclusive). Used only to build the two sides of a merge
// interleave, so it tracks its own local seen-set rather than the
// caller's.
func chainUntil(store *objstore.Store, start, stop hash.Digest) ([]commitRef, error) {
	var out []commitRef
	local := map[hash.Digest]bool{}

	var rec func(d hash.Digest) error
	rec = func(d hash.Digest) error {
		if d.IsZero() || local[d] {
			return nil
		}
		c, err := loadCommit(store, d)
		if err != nil {
			return err
		}
		local[d] = true
		out = append(out, commitRef{digest: d, commit: c})
		if d == stop {
			return nil
		}
		switch len(c.Parents) {
		case 0:
			return nil
		case 1:
			return rec(c.Parents[0])
		case 2:
			if err := rec(c.Parents[0]); err != nil {
				return err
			}
			return rec(c.Parents[1])
		default:
			return xerrors.Errorf("commit %s has %d parents: %w", d, len(c.Parents), objstore.ErrFormat)
		}
	}
	if err := rec(start); err != nil {
		return nil, err
	}
	return out, nil
}

func interleaveByDateDesc(a, b []commitRef) []commitRef {
	out := make([]commitRef, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].commit.Author.Time >= b[j].commit.Author.Time {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// LastCommonAncestor computes ancestors(a) as a set, then iterates
// ancestors(b) and returns the first element also in that set. Returns
// hash.Zero and a nil error if the two histories are disjoint
// (spec.md §4.5, testable properties #12–13).
func LastCommonAncestor(store *objstore.Store, a, b hash.Digest) (hash.Digest, error) {
	d, _, err := lastCommonAncestor(store, a, b)
	return d, err
}

func lastCommonAncestor(store *objstore.Store, a, b hash.Digest) (hash.Digest, bool, error) {
	if a.IsZero() || b.IsZero() {
		return hash.Zero, false, nil
	}

	ancestorsA, err := Ancestors(store, a)
	if err != nil {
		return hash.Zero, false, err
	}
	setA := make(map[hash.Digest]bool, len(ancestorsA))
	for _, d := range ancestorsA {
		setA[d] = true
	}

	ancestorsB, err := Ancestors(store, b)
	if err != nil {
		return hash.Zero, false, err
	}
	for _, d := range ancestorsB {
		if setA[d] {
			return d, true, nil
		}
	}
	return hash.Zero, false, nil
}
