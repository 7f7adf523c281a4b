// Package refs implements the reference graph (spec.md §4.6): branches,
// the HEAD state machine, remote tracking refs, remote bindings, and
// the tag side table. Grounded on Nivl-git-go's ginternals/reference.go
// for the branch/HEAD vocabulary, simplified to match spec.md §3/§6:
// HEAD holds a plain branch short name (not a symbolic "ref: ..." line)
// and there is no detached-HEAD state.
package refs

import (
	"os"
	"strings"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// DefaultBranch is the branch HEAD points to on a freshly initialized
// repository.
const DefaultBranch = "master"

// State is one of the three HEAD states named in spec.md §4.6
// (detached is explicitly out of scope).
type State int8

const (
	// Unborn means HEAD names a branch with no ref file yet: there are
	// no commits on it.
	Unborn State = iota
	// Attached means HEAD names a branch whose ref file resolves to a
	// commit digest.
	Attached
)

// BranchRef is HEAD's resolved view: which branch it names, and that
// branch's tip commit if it has one.
type BranchRef struct {
	fs       afero.Fs
	metaRoot string

	Name  string
	State State
	Tip   hash.Digest
}

// Open loads HEAD's branch name and, if the branch ref file exists,
// its commit digest (spec.md §4.6).
func Open(fs afero.Fs, metaRoot string) (*BranchRef, error) {
	name, err := readHeadName(fs, metaRoot)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = DefaultBranch
	}

	br := &BranchRef{fs: fs, metaRoot: metaRoot, Name: name}
	tip, ok, err := BranchTip(fs, metaRoot, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		br.State = Unborn
		return br, nil
	}
	br.State = Attached
	br.Tip = tip
	return br, nil
}

// OpenBranch resolves an arbitrary local branch as a *BranchRef,
// independent of what HEAD currently names. Used by the pull-request
// service (spec.md §4.13), which runs the merge engine with a PR's
// base branch standing in for HEAD even though the server process
// never checks that branch out.
func OpenBranch(fs afero.Fs, metaRoot, name string) (*BranchRef, error) {
	br := &BranchRef{fs: fs, metaRoot: metaRoot, Name: name}
	tip, ok, err := BranchTip(fs, metaRoot, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		br.State = Unborn
		return br, nil
	}
	br.State = Attached
	br.Tip = tip
	return br, nil
}

func readHeadName(fs afero.Fs, metaRoot string) (string, error) {
	content, err := afero.ReadFile(fs, objpath.HeadPath(metaRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", xerrors.Errorf("could not read HEAD: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}

func writeHeadName(fs afero.Fs, metaRoot, name string) error {
	if err := afero.WriteFile(fs, objpath.HeadPath(metaRoot), []byte(name+"\n"), 0o644); err != nil {
		return xerrors.Errorf("could not write HEAD: %w", err)
	}
	return nil
}

// SetHead overwrites HEAD to name the given branch, regardless of
// whether that branch has a ref file yet. Used by receive-pack when a
// push updates the HEAD pseudo-ref (spec.md §4.11).
func SetHead(fs afero.Fs, metaRoot, name string) error {
	return writeHeadName(fs, metaRoot, name)
}

// BranchTip reads the commit digest stored in refs/heads/<name>. The
// second return is false if the branch has no ref file yet (unborn).
func BranchTip(fs afero.Fs, metaRoot, name string) (hash.Digest, bool, error) {
	content, err := afero.ReadFile(fs, objpath.BranchPath(metaRoot, name))
	if err != nil {
		if os.IsNotExist(err) {
			return hash.Zero, false, nil
		}
		return hash.Zero, false, xerrors.Errorf("could not read branch %s: %w", name, err)
	}
	digest, err := hash.FromHex(strings.TrimSpace(string(content)))
	if err != nil {
		return hash.Zero, false, xerrors.Errorf("branch %s: %w", name, err)
	}
	return digest, true, nil
}

func writeBranchTip(fs afero.Fs, metaRoot, name string, digest hash.Digest) error {
	if err := fs.MkdirAll(objpath.RefsHeadsPath(metaRoot), 0o755); err != nil {
		return xerrors.Errorf("could not create refs/heads: %w", err)
	}
	if err := afero.WriteFile(fs, objpath.BranchPath(metaRoot, name), []byte(digest.String()+"\n"), 0o644); err != nil {
		return xerrors.Errorf("could not write branch %s: %w", name, err)
	}
	return nil
}

// SetLastCommit writes/updates the current branch's ref file, creating
// a default master branch if HEAD was unborn (spec.md §4.6).
func (br *BranchRef) SetLastCommit(digest hash.Digest) error {
	if br.Name == "" {
		br.Name = DefaultBranch
	}
	if err := writeBranchTip(br.fs, br.metaRoot, br.Name, digest); err != nil {
		return err
	}
	if err := writeHeadName(br.fs, br.metaRoot, br.Name); err != nil {
		return err
	}
	br.Tip = digest
	br.State = Attached
	return nil
}

// Merging reports whether HEAD_MERGE names an in-progress conflicted
// merge, and returns the other branch's name if so.
func Merging(fs afero.Fs, metaRoot string) (string, bool, error) {
	content, err := afero.ReadFile(fs, objpath.HeadMergePath(metaRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, xerrors.Errorf("could not read HEAD_MERGE: %w", err)
	}
	name := strings.TrimSpace(string(content))
	if name == "" {
		return "", false, nil
	}
	return name, true, nil
}

// SetMerging records HEAD_MERGE = otherBranch (spec.md §4.8 step 5).
func SetMerging(fs afero.Fs, metaRoot, otherBranch string) error {
	if err := afero.WriteFile(fs, objpath.HeadMergePath(metaRoot), []byte(otherBranch+"\n"), 0o644); err != nil {
		return xerrors.Errorf("could not write HEAD_MERGE: %w", err)
	}
	return nil
}

// ClearMerging deletes HEAD_MERGE after a conflicted merge is resolved
// by a subsequent commit.
func ClearMerging(fs afero.Fs, metaRoot string) error {
	err := fs.Remove(objpath.HeadMergePath(metaRoot))
	if err != nil && !os.IsNotExist(err) {
		return xerrors.Errorf("could not clear HEAD_MERGE: %w", err)
	}
	return nil
}
