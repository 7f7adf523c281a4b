package refs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// ListBranches returns every local branch name, sorted.
func ListBranches(fs afero.Fs, metaRoot string) ([]string, error) {
	return listRefNames(fs, objpath.RefsHeadsPath(metaRoot))
}

// ListRemoteTracking returns the names of the ref files directly under
// refs/remote, sorted. Refs stored one directory down, as
// "<remote>/<branch>" (the form Fetch writes), are not listed.
func ListRemoteTracking(fs afero.Fs, metaRoot string) ([]string, error) {
	return listRefNames(fs, objpath.RefsRemotePath(metaRoot))
}

func listRefNames(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, xerrors.Errorf("could not list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CreateBranch creates a local branch named name pointing at tip. Fails
// ErrBranchExists if it already exists.
func CreateBranch(fs afero.Fs, metaRoot, name string, tip hash.Digest) error {
	if _, ok, err := BranchTip(fs, metaRoot, name); err != nil {
		return err
	} else if ok {
		return xerrors.Errorf("%s: %w", name, ErrBranchExists)
	}
	return writeBranchTip(fs, metaRoot, name, tip)
}

// SetBranchTip creates or overwrites a local branch's ref file,
// regardless of whether it already exists. Used by receive-pack to
// apply ref updates sent by a pushing client (spec.md §4.11).
func SetBranchTip(fs afero.Fs, metaRoot, name string, tip hash.Digest) error {
	return writeBranchTip(fs, metaRoot, name, tip)
}

// DeleteBranch removes a local branch's ref file. Fails ErrBranchNotFound
// if it doesn't exist.
func DeleteBranch(fs afero.Fs, metaRoot, name string) error {
	if _, ok, err := BranchTip(fs, metaRoot, name); err != nil {
		return err
	} else if !ok {
		return xerrors.Errorf("%s: %w", name, ErrBranchNotFound)
	}
	if err := fs.Remove(objpath.BranchPath(metaRoot, name)); err != nil {
		return xerrors.Errorf("could not delete branch %s: %w", name, err)
	}
	return nil
}

// RemoteTrackingTip reads the commit digest stored in
// refs/remote/<name>.
func RemoteTrackingTip(fs afero.Fs, metaRoot, name string) (hash.Digest, bool, error) {
	content, err := afero.ReadFile(fs, objpath.RemoteTrackingPath(metaRoot, name))
	if err != nil {
		if os.IsNotExist(err) {
			return hash.Zero, false, nil
		}
		return hash.Zero, false, xerrors.Errorf("could not read remote ref %s: %w", name, err)
	}
	digest, err := hash.FromHex(strings.TrimSpace(string(content)))
	if err != nil {
		return hash.Zero, false, xerrors.Errorf("remote ref %s: %w", name, err)
	}
	return digest, true, nil
}

// SetRemoteTracking writes/updates refs/remote/<name>.
func SetRemoteTracking(fs afero.Fs, metaRoot, name string, digest hash.Digest) error {
	if err := fs.MkdirAll(filepath.Dir(objpath.RemoteTrackingPath(metaRoot, name)), 0o755); err != nil {
		return xerrors.Errorf("could not create refs/remote: %w", err)
	}
	if err := afero.WriteFile(fs, objpath.RemoteTrackingPath(metaRoot, name), []byte(digest.String()+"\n"), 0o644); err != nil {
		return xerrors.Errorf("could not write remote ref %s: %w", name, err)
	}
	return nil
}
