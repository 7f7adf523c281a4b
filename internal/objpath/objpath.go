// Package objpath contains constants and helpers describing the on-disk
// layout of a repository's metadata directory, as defined in spec.md §6.
package objpath

import "path/filepath"

// MetaDirName is the name of the repository metadata directory created
// at the root of every working copy.
const MetaDirName = ".dvcs"

// IgnoreFileName is the name of the file, at the repository root, that
// lists literal paths excluded from status/ls-files.
const IgnoreFileName = ".dvcsignore"

// Names of the files and directories found directly under MetaDirName.
const (
	Head           = "HEAD"
	HeadMerge      = "HEAD_MERGE"
	HeadRemote     = "HEAD_REMOTE"
	ConfigFile     = "config"
	RemoteFile     = "remote"
	IndexFile      = "index"
	ObjectsDir     = "objects"
	RefsDir        = "refs"
	RefsHeadsDir   = "refs/heads"
	RefsRemoteDir  = "refs/remote"
	RefsTagsFile   = "refs/tags"
)

// Root returns the absolute path to the metadata directory given the
// repository's working-tree root.
func Root(workTree string) string {
	return filepath.Join(workTree, MetaDirName)
}

// LooseObjectPath returns the path of a loose object given the metadata
// root and the object's 40-char hex digest.
// Ex. for digest fcfe68a0e44e04bd7fd564fc0b75f1ae457e18b3, the path is
// <root>/objects/fc/fe68a0e44e04bd7fd564fc0b75f1ae457e18b3
func LooseObjectPath(metaRoot, hexDigest string) string {
	return filepath.Join(metaRoot, ObjectsDir, hexDigest[:2], hexDigest[2:])
}

// ObjectsPath returns the path to the objects directory.
func ObjectsPath(metaRoot string) string {
	return filepath.Join(metaRoot, ObjectsDir)
}

// BranchPath returns the path of a local branch file.
func BranchPath(metaRoot, name string) string {
	return filepath.Join(metaRoot, RefsHeadsDir, name)
}

// RemoteTrackingPath returns the path of a remote-tracking ref file.
func RemoteTrackingPath(metaRoot, name string) string {
	return filepath.Join(metaRoot, RefsRemoteDir, name)
}

// HeadPath returns the path of the HEAD file.
func HeadPath(metaRoot string) string {
	return filepath.Join(metaRoot, Head)
}

// HeadMergePath returns the path of the HEAD_MERGE file.
func HeadMergePath(metaRoot string) string {
	return filepath.Join(metaRoot, HeadMerge)
}

// HeadRemotePath returns the path of the HEAD_REMOTE file.
func HeadRemotePath(metaRoot string) string {
	return filepath.Join(metaRoot, HeadRemote)
}

// ConfigPath returns the path of the config file.
func ConfigPath(metaRoot string) string {
	return filepath.Join(metaRoot, ConfigFile)
}

// RemotePath returns the path of the remote file.
func RemotePath(metaRoot string) string {
	return filepath.Join(metaRoot, RemoteFile)
}

// IndexPath returns the path of the index file.
func IndexPath(metaRoot string) string {
	return filepath.Join(metaRoot, IndexFile)
}

// TagsPath returns the path of the tags side table.
func TagsPath(metaRoot string) string {
	return filepath.Join(metaRoot, RefsTagsFile)
}

// RefsHeadsPath returns the path of the refs/heads directory.
func RefsHeadsPath(metaRoot string) string {
	return filepath.Join(metaRoot, RefsHeadsDir)
}

// RefsRemotePath returns the path of the refs/remote directory.
func RefsRemotePath(metaRoot string) string {
	return filepath.Join(metaRoot, RefsRemoteDir)
}
