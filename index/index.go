// Package index implements the staged-file table that mediates between
// the working directory and the next commit (spec.md §3, §4.3).
package index

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/internal/errutil"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Entry is one staged file: when it was last seen, its current content
// digest, and (if staged since the last commit) the digest it had at
// the last commit.
type Entry struct {
	// ModTime is the on-disk modification time observed the last time
	// this entry was refreshed.
	ModTime time.Time
	// Current is the digest of the file's content as last seen on disk.
	Current hash.Digest
	// Previous is non-zero iff the entry has been staged since the last
	// commit (spec.md §3: drives the to-be-committed / modified-but-not-
	// staged distinction).
	Previous hash.Digest
	hasPrev  bool
}

// Staged reports whether this entry has pending changes to be committed.
func (e Entry) Staged() bool {
	return e.hasPrev
}

// Index is an ordered mapping from repository-relative path to Entry.
type Index struct {
	fs   afero.Fs
	path string

	order   []string
	entries map[string]Entry
}

// New returns an empty Index backed by the file at path.
func New(fs afero.Fs, path string) *Index {
	return &Index{
		fs:      fs,
		path:    path,
		entries: map[string]Entry{},
	}
}

// Open reads and parses the index file at path. A missing file is
// treated as an empty index (so a freshly initialized repository can
// open one before anything has ever been staged).
func Open(fs afero.Fs, path string) (idx *Index, err error) {
	idx = New(fs, path)

	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, xerrors.Errorf("could not open index at %s: %w", path, err)
	}
	defer errutil.Close(f, &err)

	if err := idx.parse(f); err != nil {
		return nil, err
	}
	return idx, nil
}

// line format: mtime_unixnano \t current_hex \t previous_hex_or_dash \t path
func (idx *Index) parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 4)
		if len(fields) != 4 {
			return xerrors.Errorf("line %d: wrong field count: %w", lineNo, ErrFormat)
		}

		nanos, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return xerrors.Errorf("line %d: invalid mtime: %w", lineNo, ErrFormat)
		}
		current, err := hash.FromHex(fields[1])
		if err != nil {
			return xerrors.Errorf("line %d: invalid current digest: %w", lineNo, ErrFormat)
		}

		e := Entry{ModTime: time.Unix(0, nanos), Current: current}
		if fields[2] != "-" {
			prev, err := hash.FromHex(fields[2])
			if err != nil {
				return xerrors.Errorf("line %d: invalid previous digest: %w", lineNo, ErrFormat)
			}
			e.Previous = prev
			e.hasPrev = true
		}

		path := fields[3]
		idx.order = append(idx.order, path)
		idx.entries[path] = e
	}
	if err := sc.Err(); err != nil {
		return xerrors.Errorf("could not scan index: %w", err)
	}
	return nil
}

// Save serializes every entry back to the index file, sorted by path.
func (idx *Index) Save() (err error) {
	paths := idx.sortedPaths()

	if err := idx.fs.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return xerrors.Errorf("could not create index directory: %w", err)
	}
	f, err := idx.fs.Create(idx.path)
	if err != nil {
		return xerrors.Errorf("could not create index file: %w", err)
	}
	defer errutil.Close(f, &err)

	w := bufio.NewWriter(f)
	for _, p := range paths {
		e := idx.entries[p]
		prev := "-"
		if e.hasPrev {
			prev = e.Previous.String()
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ModTime.UnixNano(), e.Current, prev, p); err != nil {
			return xerrors.Errorf("could not write index entry for %s: %w", p, err)
		}
	}
	return w.Flush()
}

func (idx *Index) sortedPaths() []string {
	paths := make([]string, 0, len(idx.entries))
	for p := range idx.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns every staged entry, sorted by path.
func (idx *Index) Entries() []Entry {
	paths := idx.sortedPaths()
	out := make([]Entry, 0, len(paths))
	for _, p := range paths {
		out = append(out, idx.entries[p])
	}
	return out
}

// Paths returns every staged path, sorted.
func (idx *Index) Paths() []string {
	return idx.sortedPaths()
}

// Get returns the entry for path, if any.
func (idx *Index) Get(path string) (Entry, bool) {
	e, ok := idx.entries[path]
	return e, ok
}

// Add stages path: it reads the file, computes its blob digest and
// writes it to store. On a brand new path the entry is recorded with
// Previous == Current (spec.md §4.3). On an already-known path, the
// entry is refreshed only if the on-disk mtime changed; if the content
// reverted to exactly Previous, Previous is cleared (un-staging it).
func (idx *Index) Add(store *objstore.Store, workTree, path string) error {
	fullPath := filepath.Join(workTree, path)
	info, err := idx.fs.Stat(fullPath)
	if err != nil {
		return xerrors.Errorf("could not stat %s: %w", path, err)
	}

	modTime := info.ModTime().Round(0)
	existing, known := idx.entries[path]
	if known && modTime.Equal(existing.ModTime) {
		return nil
	}

	content, err := afero.ReadFile(idx.fs, fullPath)
	if err != nil {
		return xerrors.Errorf("could not read %s: %w", path, err)
	}
	digest, err := store.Write(objstore.KindBlob, content)
	if err != nil {
		return xerrors.Errorf("could not write blob for %s: %w", path, err)
	}

	if !known {
		idx.entries[path] = Entry{
			ModTime:  modTime,
			Current:  digest,
			Previous: digest,
			hasPrev:  true,
		}
		idx.order = append(idx.order, path)
		return nil
	}

	if digest == existing.Previous {
		idx.entries[path] = Entry{ModTime: modTime, Current: digest}
		return nil
	}

	idx.entries[path] = Entry{
		ModTime:  modTime,
		Current:  digest,
		Previous: existing.Current,
		hasPrev:  true,
	}
	return nil
}

// Remove unstages path. Returns ErrFileNotInIndex if it isn't tracked.
func (idx *Index) Remove(path string) error {
	if _, ok := idx.entries[path]; !ok {
		return ErrFileNotInIndex
	}
	delete(idx.entries, path)
	for i, p := range idx.order {
		if p == path {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
	return nil
}

// ResetPrevious clears the Previous field of every entry. Called once
// after a commit succeeds (spec.md §4.3).
func (idx *Index) ResetPrevious() {
	for p, e := range idx.entries {
		e.hasPrev = false
		e.Previous = hash.Zero
		idx.entries[p] = e
	}
}

// Status partitions every file under workTree into untracked,
// not-staged, and staged, per spec.md §4.3. The repository metadata
// directory and any path present in ignoreSet are skipped.
func (idx *Index) Status(workTree string, ignoreSet map[string]bool) (untracked, notStaged, staged []string, err error) {
	seen := map[string]bool{}

	err = afero.Walk(idx.fs, workTree, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(workTree, p)
		if relErr != nil {
			return xerrors.Errorf("could not compute relative path for %s: %w", p, relErr)
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel == objpath.MetaDirName || ignoreSet[rel] {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoreSet[rel] {
			return nil
		}

		seen[rel] = true
		entry, known := idx.entries[rel]
		if !known {
			untracked = append(untracked, rel)
			return nil
		}

		content, readErr := afero.ReadFile(idx.fs, p)
		if readErr != nil {
			return xerrors.Errorf("could not read %s: %w", rel, readErr)
		}
		if objstore.New(objstore.KindBlob, content).Digest() != entry.Current {
			notStaged = append(notStaged, rel)
		}
		if entry.hasPrev {
			staged = append(staged, rel)
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, xerrors.Errorf("could not walk working directory: %w", err)
	}

	sort.Strings(untracked)
	sort.Strings(notStaged)
	sort.Strings(staged)
	return untracked, notStaged, staged, nil
}

// CheckForChanges returns a *errs.RepositoryError if any status bucket
// is non-empty. Used as a guard before checkout/merge/pull/push.
func (idx *Index) CheckForChanges(workTree string, ignoreSet map[string]bool) error {
	untracked, notStaged, staged, err := idx.Status(workTree, ignoreSet)
	if err != nil {
		return err
	}
	if len(untracked) > 0 || len(notStaged) > 0 || len(staged) > 0 {
		return errs.NewRepositoryError("uncommitted changes present in the working directory")
	}
	return nil
}
