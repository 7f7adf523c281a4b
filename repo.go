// Package dvcs is the Repository façade that ties every layer of the
// core together: object store, index, refs/HEAD, and the operations
// the CLI (cmd/dvcs) drives. Grounded on Nivl-git-go's repo.go, which
// plays the same role for the teacher (a single Repository struct
// wrapping an object backend and a working-tree filesystem); adapted
// to this repo's afero-everywhere style and its own package layout
// rather than the teacher's backend.Backend interface, which this
// system's simpler, single-implementation object store doesn't need.
package dvcs

import (
	"path/filepath"

	"github.com/dvcs-go/dvcs/config"
	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/index"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Repository wraps a working tree and its ".dvcs" metadata directory:
// the object store, the index, and the reference graph all live
// underneath MetaRoot (spec.md §6).
type Repository struct {
	Fs       afero.Fs
	WorkTree string
	MetaRoot string
	Store    *objstore.Store
}

// Init creates the metadata layout at workTree/.dvcs. Fails with a
// *errs.RepositoryError if it already exists (CLI `init`, spec.md §6).
func Init(fs afero.Fs, workTree string) (*Repository, error) {
	metaRoot := objpath.Root(workTree)
	if exists, err := afero.DirExists(fs, metaRoot); err != nil {
		return nil, xerrors.Errorf("could not check for existing repository: %w", err)
	} else if exists {
		return nil, errs.NewRepositoryError("repository already initialized at %s", workTree)
	}

	store := objstore.New(fs, metaRoot)
	if err := store.Init(); err != nil {
		return nil, err
	}
	if err := fs.MkdirAll(objpath.RefsHeadsPath(metaRoot), 0o755); err != nil {
		return nil, xerrors.Errorf("could not create refs/heads: %w", err)
	}
	if err := fs.MkdirAll(objpath.RefsRemotePath(metaRoot), 0o755); err != nil {
		return nil, xerrors.Errorf("could not create refs/remote: %w", err)
	}
	if err := refs.SetHead(fs, metaRoot, refs.DefaultBranch); err != nil {
		return nil, err
	}

	return &Repository{Fs: fs, WorkTree: workTree, MetaRoot: metaRoot, Store: store}, nil
}

// Open resolves an existing repository rooted at workTree. Fails with a
// *errs.RepositoryError if workTree/.dvcs doesn't exist.
func Open(fs afero.Fs, workTree string) (*Repository, error) {
	metaRoot := objpath.Root(workTree)
	if exists, err := afero.DirExists(fs, metaRoot); err != nil {
		return nil, xerrors.Errorf("could not check for repository: %w", err)
	} else if !exists {
		return nil, errs.NewRepositoryError("no repository found at %s", workTree)
	}
	return &Repository{Fs: fs, WorkTree: workTree, MetaRoot: metaRoot, Store: objstore.New(fs, metaRoot)}, nil
}

// Config loads the repository's committer identity (spec.md §6).
func (r *Repository) Config() (*config.Config, error) {
	return config.Load(r.Fs, objpath.ConfigPath(r.MetaRoot))
}

// SaveConfig persists cfg back to the repository's config file.
func (r *Repository) SaveConfig(cfg *config.Config) error {
	return cfg.Save(r.Fs, objpath.ConfigPath(r.MetaRoot))
}

// Index opens the repository's staged-file table.
func (r *Repository) Index() (*index.Index, error) {
	return index.Open(r.Fs, objpath.IndexPath(r.MetaRoot))
}

// Head resolves HEAD's current branch and tip.
func (r *Repository) Head() (*refs.BranchRef, error) {
	return refs.Open(r.Fs, r.MetaRoot)
}

// IgnoreSet loads the repository's ignore-file entries (spec.md §6),
// an empty set if no ignore file exists.
func (r *Repository) IgnoreSet() (map[string]bool, error) {
	return index.LoadIgnoreSet(r.Fs, ignorePath(r.WorkTree))
}

func ignorePath(workTree string) string {
	return filepath.Join(workTree, objpath.IgnoreFileName)
}
