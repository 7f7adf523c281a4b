package refs

import "golang.org/x/xerrors"

var (
	// ErrBranchExists is returned when creating a branch that already exists.
	ErrBranchExists = xerrors.New("branch already exists")
	// ErrBranchNotFound is returned when a named branch has no ref file.
	ErrBranchNotFound = xerrors.New("branch not found")
	// ErrRemoteExists is returned when adding a remote under a name already in use.
	ErrRemoteExists = xerrors.New("remote already exists")
	// ErrRemoteNotFound is returned when a named remote is unknown.
	ErrRemoteNotFound = xerrors.New("remote not found")
	// ErrTagExists is returned when creating a tag that already exists.
	ErrTagExists = xerrors.New("tag already exists")
	// ErrTagNotFound is returned when a named tag is unknown.
	ErrTagNotFound = xerrors.New("tag not found")
	// ErrFormat is returned when a ref, remote, or tag file is malformed.
	ErrFormat = xerrors.New("malformed reference data")
)
