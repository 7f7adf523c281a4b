package refs

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/internal/errutil"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Tag is one entry of the tags side table (spec.md §6: refs/tags, one
// tag per line, ';'-separated fields). Tags deliberately aren't a
// fourth object kind; they live outside the content-addressed store.
type Tag struct {
	Name      string
	Creator   string
	Commit    hash.Digest
	Message   string
	CreatedAt time.Time
}

func (t Tag) encode() string {
	return strings.Join([]string{
		t.Name,
		t.Creator,
		t.Commit.String(),
		strconv.FormatInt(t.CreatedAt.Unix(), 10),
		t.Message,
	}, ";")
}

func decodeTag(line string) (Tag, error) {
	fields := strings.SplitN(line, ";", 5)
	if len(fields) != 5 {
		return Tag{}, xerrors.Errorf("tag line %q: %w", line, ErrFormat)
	}
	digest, err := hash.FromHex(fields[2])
	if err != nil {
		return Tag{}, xerrors.Errorf("tag line %q: %w", line, err)
	}
	unixSeconds, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Tag{}, xerrors.Errorf("tag line %q: %w", line, ErrFormat)
	}
	return Tag{
		Name:      fields[0],
		Creator:   fields[1],
		Commit:    digest,
		CreatedAt: time.Unix(unixSeconds, 0),
		Message:   fields[4],
	}, nil
}

// LoadTags parses the tags side table. A missing file yields no tags.
func LoadTags(fs afero.Fs, metaRoot string) (tags []Tag, err error) {
	f, err := fs.Open(objpath.TagsPath(metaRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, xerrors.Errorf("could not open tags: %w", err)
	}
	defer errutil.Close(f, &err)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		tag, decErr := decodeTag(line)
		if decErr != nil {
			return nil, decErr
		}
		tags = append(tags, tag)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("could not scan tags: %w", err)
	}
	return tags, nil
}

// SaveTags serializes tags back to the tags side table.
func SaveTags(fs afero.Fs, metaRoot string, tags []Tag) (err error) {
	f, err := fs.Create(objpath.TagsPath(metaRoot))
	if err != nil {
		return xerrors.Errorf("could not create tags file: %w", err)
	}
	defer errutil.Close(f, &err)

	w := bufio.NewWriter(f)
	for _, t := range tags {
		if _, err := w.WriteString(t.encode() + "\n"); err != nil {
			return xerrors.Errorf("could not write tag %s: %w", t.Name, err)
		}
	}
	return w.Flush()
}

// CreateTag appends a new tag. Fails ErrTagExists if the name is taken.
func CreateTag(fs afero.Fs, metaRoot string, tag Tag) error {
	tags, err := LoadTags(fs, metaRoot)
	if err != nil {
		return err
	}
	for _, t := range tags {
		if t.Name == tag.Name {
			return xerrors.Errorf("%s: %w", tag.Name, ErrTagExists)
		}
	}
	tags = append(tags, tag)
	return SaveTags(fs, metaRoot, tags)
}

// DeleteTag removes the named tag. Fails ErrTagNotFound if absent.
func DeleteTag(fs afero.Fs, metaRoot, name string) error {
	tags, err := LoadTags(fs, metaRoot)
	if err != nil {
		return err
	}
	idx := -1
	for i, t := range tags {
		if t.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return xerrors.Errorf("%s: %w", name, ErrTagNotFound)
	}
	tags = append(tags[:idx], tags[idx+1:]...)
	return SaveTags(fs, metaRoot, tags)
}

// GetTag returns the named tag.
func GetTag(fs afero.Fs, metaRoot, name string) (Tag, error) {
	tags, err := LoadTags(fs, metaRoot)
	if err != nil {
		return Tag{}, err
	}
	for _, t := range tags {
		if t.Name == name {
			return t, nil
		}
	}
	return Tag{}, xerrors.Errorf("%s: %w", name, ErrTagNotFound)
}

// MatchTags returns every tag whose name matches the glob pattern, sorted.
func MatchTags(fs afero.Fs, metaRoot, pattern string) ([]Tag, error) {
	tags, err := LoadTags(fs, metaRoot)
	if err != nil {
		return nil, err
	}
	var out []Tag
	for _, t := range tags {
		ok, err := filepath.Match(pattern, t.Name)
		if err != nil {
			return nil, xerrors.Errorf("invalid tag pattern %q: %w", pattern, err)
		}
		if ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
