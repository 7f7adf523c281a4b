package index

import (
	"bufio"
	"os"
	"strings"

	"github.com/dvcs-go/dvcs/internal/errutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// LoadIgnoreSet reads the ignore file at path and returns the set of
// literal repository-relative paths it lists (spec.md §6: one per
// line, exact match — no globbing). A missing file yields an empty set.
func LoadIgnoreSet(fs afero.Fs, path string) (set map[string]bool, err error) {
	set = map[string]bool{}

	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, xerrors.Errorf("could not open ignore file at %s: %w", path, err)
	}
	defer errutil.Close(f, &err)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		set[line] = true
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("could not scan ignore file: %w", err)
	}
	return set, nil
}
