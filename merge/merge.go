// Package merge implements the merge engine of spec.md §4.8:
// fast-forward detection, three-way tree merge with textual conflict
// resolution, and merge-commit authoring. Grounded on Nivl-git-go's
// commit.go for how a new commit is authored from a signature and a
// tree digest; the tree-merge classification itself has no teacher
// analogue and follows spec.md's per-path table directly.
package merge

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/dvcs-go/dvcs/config"
	"github.com/dvcs-go/dvcs/diff"
	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/history"
	"github.com/dvcs-go/dvcs/index"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/tree"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Result reports what a merge did to the working tree.
type Result struct {
	// Modified is every path whose content changed cleanly.
	Modified []string
	// Conflicts is every path left with inline conflict markers. A
	// non-empty Conflicts means no merge commit was created.
	Conflicts []string
}

// Run merges otherBranch into head (spec.md §4.8). head must already be
// open and attached. Run does not check for uncommitted changes itself;
// the CLI merge and pull commands run Index.CheckForChanges first.
func Run(fs afero.Fs, store *objstore.Store, workTree, metaRoot string, head *refs.BranchRef, otherBranch string, identity *config.Config) (*Result, error) {
	otherTip, ok, err := refs.BranchTip(fs, metaRoot, otherBranch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NewRepositoryError("branch %q not found", otherBranch)
	}

	lca, err := history.LastCommonAncestor(store, head.Tip, otherTip)
	if err != nil {
		return nil, err
	}
	if lca.IsZero() {
		return nil, errs.NewRepositoryError("no common ancestor between %q and %q", head.Name, otherBranch)
	}

	if lca == head.Tip {
		if err := head.SetLastCommit(otherTip); err != nil {
			return nil, err
		}
		if err := refs.CheckoutTo(fs, store, workTree, metaRoot, head.Name); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}

	return threeWay(fs, store, workTree, metaRoot, head, otherBranch, otherTip, lca, identity)
}

func treeOf(store *objstore.Store, commitDigest hash.Digest) (hash.Digest, error) {
	o, err := store.ReadKind(commitDigest, objstore.KindCommit)
	if err != nil {
		return hash.Zero, xerrors.Errorf("could not read commit %s: %w", commitDigest, err)
	}
	c, err := objstore.DecodeCommit(o.Payload())
	if err != nil {
		return hash.Zero, xerrors.Errorf("could not decode commit %s: %w", commitDigest, err)
	}
	return c.Tree, nil
}

func flattenToMap(store *objstore.Store, commitDigest hash.Digest) (map[string]hash.Digest, error) {
	treeDigest, err := treeOf(store, commitDigest)
	if err != nil {
		return nil, err
	}
	entries, err := tree.Flatten(store, treeDigest)
	if err != nil {
		return nil, xerrors.Errorf("could not flatten tree %s: %w", treeDigest, err)
	}
	m := make(map[string]hash.Digest, len(entries))
	for _, e := range entries {
		m[e.Path] = e.Digest
	}
	return m, nil
}

func unionKeys(maps ...map[string]hash.Digest) []string {
	set := map[string]bool{}
	for _, m := range maps {
		for k := range m {
			set[k] = true
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func blobLines(store *objstore.Store, digest hash.Digest) ([]string, error) {
	if digest.IsZero() {
		return nil, nil
	}
	o, err := store.ReadKind(digest, objstore.KindBlob)
	if err != nil {
		return nil, xerrors.Errorf("could not read blob %s: %w", digest, err)
	}
	return diff.SplitLines(string(o.Payload())), nil
}

func threeWay(fs afero.Fs, store *objstore.Store, workTree, metaRoot string, head *refs.BranchRef, otherBranch string, otherTip, lca hash.Digest, identity *config.Config) (*Result, error) {
	headMap, err := flattenToMap(store, head.Tip)
	if err != nil {
		return nil, err
	}
	otherMap, err := flattenToMap(store, otherTip)
	if err != nil {
		return nil, err
	}
	lcaMap, err := flattenToMap(store, lca)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	resultMap := map[string]hash.Digest{}
	conflictContent := map[string][]byte{}

	for _, p := range unionKeys(headMap, otherMap, lcaMap) {
		h, o, l := headMap[p], otherMap[p], lcaMap[p]

		switch {
		case h == o:
			if !h.IsZero() {
				resultMap[p] = h
			}
		case o == l:
			if !h.IsZero() {
				resultMap[p] = h
			}
		case h == l:
			if !o.IsZero() {
				resultMap[p] = o
				res.Modified = append(res.Modified, p)
			}
		default:
			headLines, err := blobLines(store, h)
			if err != nil {
				return nil, err
			}
			otherLines, err := blobLines(store, o)
			if err != nil {
				return nil, err
			}
			baseLines, err := blobLines(store, l)
			if err != nil {
				return nil, err
			}
			merged, conflict := diff.ThreeWayMerge(baseLines, headLines, otherLines)
			content := []byte(diff.JoinLines(merged))
			if len(merged) > 0 {
				content = append(content, '\n')
			}
			if conflict {
				res.Conflicts = append(res.Conflicts, p)
				conflictContent[p] = content
				continue
			}
			digest, err := store.Write(objstore.KindBlob, content)
			if err != nil {
				return nil, err
			}
			resultMap[p] = digest
			res.Modified = append(res.Modified, p)
		}
	}
	sort.Strings(res.Modified)

	if len(res.Conflicts) > 0 {
		sort.Strings(res.Conflicts)
		if err := materialize(fs, store, workTree, metaRoot, resultMap, conflictContent); err != nil {
			return nil, err
		}
		if err := refs.SetMerging(fs, metaRoot, otherBranch); err != nil {
			return nil, err
		}
		return res, nil
	}

	if err := materialize(fs, store, workTree, metaRoot, resultMap, nil); err != nil {
		return nil, err
	}

	entries := make([]tree.Entry, 0, len(resultMap))
	for p, d := range resultMap {
		entries = append(entries, tree.Entry{Path: p, Digest: d})
	}
	newTree, err := tree.BuildFromIndex(entries).Write(store)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sig := objstore.Signature{
		Name: identity.UserName,
		Mail: identity.UserMail,
		Time: now.Unix(),
		TZ:   now.Format("-0700"),
	}
	commit := &objstore.Commit{
		Tree:      newTree,
		Parents:   []hash.Digest{head.Tip, otherTip},
		Author:    sig,
		Committer: sig,
		Message:   "Merge branch '" + otherBranch + "'",
	}
	commitDigest, err := store.WriteObject(commit.ToObject())
	if err != nil {
		return nil, err
	}
	if err := head.SetLastCommit(commitDigest); err != nil {
		return nil, err
	}
	return res, nil
}

// materialize writes every path's resulting content into the working
// tree and refreshes the index. Paths in conflictContent are written
// with literal marker bytes instead of their resolved blob.
func materialize(fs afero.Fs, store *objstore.Store, workTree, metaRoot string, resultMap map[string]hash.Digest, conflictContent map[string][]byte) error {
	idx, err := index.Open(fs, objpath.IndexPath(metaRoot))
	if err != nil {
		return err
	}

	for p, content := range conflictContent {
		fullPath := filepath.Join(workTree, p)
		if err := fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return xerrors.Errorf("could not create directory for %s: %w", p, err)
		}
		if err := afero.WriteFile(fs, fullPath, content, 0o644); err != nil {
			return xerrors.Errorf("could not write conflicted %s: %w", p, err)
		}
	}

	for p, digest := range resultMap {
		o, err := store.ReadKind(digest, objstore.KindBlob)
		if err != nil {
			return xerrors.Errorf("could not read blob %s: %w", digest, err)
		}
		fullPath := filepath.Join(workTree, p)
		if err := fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return xerrors.Errorf("could not create directory for %s: %w", p, err)
		}
		if err := afero.WriteFile(fs, fullPath, o.Payload(), 0o644); err != nil {
			return xerrors.Errorf("could not write %s: %w", p, err)
		}
		if err := idx.Add(store, workTree, p); err != nil {
			return xerrors.Errorf("could not stage %s: %w", p, err)
		}
	}
	for p := range conflictContent {
		if err := idx.Add(store, workTree, p); err != nil {
			return xerrors.Errorf("could not stage conflicted %s: %w", p, err)
		}
	}
	return idx.Save()
}
