// Package rebase implements the linear history replay of spec.md §4.9.
// No teacher or pack example rewrites commit history this way; the
// replay loop is original to this package but reuses objstore.Commit
// encode/decode and Store.WriteObject/Delete exactly as merge and
// history do.
package rebase

import (
	"time"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

type commitRef struct {
	digest hash.Digest
	commit *objstore.Commit
}

// chainOldestFirst walks the single-parent lineage from tip back to the
// root, returning it oldest-first. Only the first parent is followed;
// rebase operates on linear history.
func chainOldestFirst(store *objstore.Store, tip hash.Digest) ([]commitRef, error) {
	var newestFirst []commitRef
	cur := tip
	for !cur.IsZero() {
		o, err := store.ReadKind(cur, objstore.KindCommit)
		if err != nil {
			return nil, xerrors.Errorf("could not read commit %s: %w", cur, err)
		}
		c, err := objstore.DecodeCommit(o.Payload())
		if err != nil {
			return nil, xerrors.Errorf("could not decode commit %s: %w", cur, err)
		}
		newestFirst = append(newestFirst, commitRef{digest: cur, commit: c})
		if len(c.Parents) == 0 {
			break
		}
		cur = c.Parents[0]
	}

	oldestFirst := make([]commitRef, len(newestFirst))
	for i, cr := range newestFirst {
		oldestFirst[len(newestFirst)-1-i] = cr
	}
	return oldestFirst, nil
}

// Run replays other's divergent commits onto base's tip, per spec.md
// §4.9: walk both chains oldest-first, find the first index where
// messages diverge, replay each divergent commit of other rewriting
// its parent to the previous rewritten commit (or base's tip for the
// first), persist the rewritten commit, delete the orphaned original,
// and advance other's branch pointer to the last rewritten commit.
func Run(fs afero.Fs, store *objstore.Store, metaRoot string, base, other *refs.BranchRef) error {
	if base.Name == other.Name {
		return xerrors.Errorf("rebase base and other are the same branch %q: %w", base.Name, objstore.ErrFormat)
	}

	baseChain, err := chainOldestFirst(store, base.Tip)
	if err != nil {
		return err
	}
	otherChain, err := chainOldestFirst(store, other.Tip)
	if err != nil {
		return err
	}

	divergeAt := 0
	for divergeAt < len(baseChain) && divergeAt < len(otherChain) {
		if baseChain[divergeAt].commit.Message != otherChain[divergeAt].commit.Message {
			break
		}
		divergeAt++
	}

	if divergeAt >= len(otherChain) {
		// other has no commits beyond what base already has.
		return nil
	}

	parent := base.Tip
	var last hash.Digest
	var orphans []hash.Digest

	for _, cr := range otherChain[divergeAt:] {
		rewritten := &objstore.Commit{
			Tree:      cr.commit.Tree,
			Author:    cr.commit.Author,
			Committer: rewrittenCommitter(cr.commit.Committer),
			Message:   cr.commit.Message,
		}
		if !parent.IsZero() {
			rewritten.Parents = []hash.Digest{parent}
		}

		digest, err := store.WriteObject(rewritten.ToObject())
		if err != nil {
			return xerrors.Errorf("could not persist rewritten commit: %w", err)
		}

		orphans = append(orphans, cr.digest)
		parent = digest
		last = digest
	}

	if err := other.SetLastCommit(last); err != nil {
		return err
	}

	for _, orphan := range orphans {
		if orphan == last {
			continue
		}
		if err := store.Delete(orphan); err != nil {
			return xerrors.Errorf("could not delete orphaned commit %s: %w", orphan, err)
		}
	}
	return nil
}

func rewrittenCommitter(c objstore.Signature) objstore.Signature {
	now := time.Now()
	return objstore.Signature{Name: c.Name, Mail: c.Mail, Time: now.Unix(), TZ: now.Format("-0700")}
}
