package refs

import (
	"os"
	"path/filepath"

	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/index"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/tree"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// CheckoutTo switches the working directory and HEAD to branch,
// per spec.md §4.6:
//  1. Enumerate files in the branch's commit tree.
//  2. Recursively wipe the working directory, preserving the metadata
//     directory and the ignore file.
//  3. Re-materialize every blob from the commit tree.
//  4. Rebuild the index from the new working directory.
//  5. Overwrite HEAD to point to the new branch.
//
// Callers must run Index.CheckForChanges first; CheckoutTo itself does
// not guard against uncommitted changes.
func CheckoutTo(fs afero.Fs, store *objstore.Store, workTree, metaRoot, branch string) error {
	tip, ok, err := BranchTip(fs, metaRoot, branch)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Errorf("%s: %w", branch, ErrBranchNotFound)
	}

	commitObj, err := store.ReadKind(tip, objstore.KindCommit)
	if err != nil {
		return xerrors.Errorf("could not read commit %s: %w", tip, err)
	}
	commit, err := objstore.DecodeCommit(commitObj.Payload())
	if err != nil {
		return xerrors.Errorf("could not decode commit %s: %w", tip, err)
	}

	entries, err := tree.Flatten(store, commit.Tree)
	if err != nil {
		return xerrors.Errorf("could not flatten tree %s: %w", commit.Tree, err)
	}

	if err := wipeWorkTree(fs, workTree); err != nil {
		return err
	}

	idx := index.New(fs, objpath.IndexPath(metaRoot))
	for _, e := range entries {
		obj, err := store.ReadKind(e.Digest, objstore.KindBlob)
		if err != nil {
			return xerrors.Errorf("could not read blob %s: %w", e.Digest, err)
		}
		fullPath := filepath.Join(workTree, e.Path)
		if err := fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return xerrors.Errorf("could not create directory for %s: %w", e.Path, err)
		}
		if err := afero.WriteFile(fs, fullPath, obj.Payload(), 0o644); err != nil {
			return xerrors.Errorf("could not write %s: %w", e.Path, err)
		}
		if err := idx.Add(store, workTree, e.Path); err != nil {
			return xerrors.Errorf("could not stage %s: %w", e.Path, err)
		}
	}
	idx.ResetPrevious()
	if err := idx.Save(); err != nil {
		return err
	}

	if err := writeHeadName(fs, metaRoot, branch); err != nil {
		return err
	}
	return nil
}

// wipeWorkTree recursively removes every entry under workTree except
// the repository metadata directory and the ignore file.
func wipeWorkTree(fs afero.Fs, workTree string) error {
	entries, err := afero.ReadDir(fs, workTree)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return xerrors.Errorf("could not read working directory: %w", err)
	}
	for _, e := range entries {
		if e.Name() == objpath.MetaDirName || e.Name() == objpath.IgnoreFileName {
			continue
		}
		if err := fs.RemoveAll(filepath.Join(workTree, e.Name())); err != nil {
			return xerrors.Errorf("could not remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Switch creates a local branch from a remote tracking ref and checks
// out to it. Fails if localName already exists (spec.md §4.6).
func Switch(fs afero.Fs, store *objstore.Store, workTree, metaRoot, localName, remoteName string) error {
	if _, ok, err := BranchTip(fs, metaRoot, localName); err != nil {
		return err
	} else if ok {
		return xerrors.Errorf("%s: %w", localName, ErrBranchExists)
	}

	tip, ok, err := RemoteTrackingTip(fs, metaRoot, remoteName)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NewRepositoryError("remote tracking ref %q not found", remoteName)
	}

	if err := CreateBranch(fs, metaRoot, localName, tip); err != nil {
		return err
	}
	return CheckoutTo(fs, store, workTree, metaRoot, localName)
}
