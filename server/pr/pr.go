// Package pr implements the pull-request lifecycle of spec.md §4.13:
// create, list, get, patch and merge, persisted as individual JSON
// files under <server>/<repo>/pull_requests/<n>.json. No example in
// the pack runs a PR service over this kind of object model, so the
// lifecycle itself is written directly from spec.md's endpoint table;
// it reuses refs/history/merge exactly the way wire/protocol's client
// flows do, and persists with encoding/json the way the teacher's own
// config loading favors small, explicit (de)serializers over a
// database.
package pr

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dvcs-go/dvcs/config"
	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/history"
	"github.com/dvcs-go/dvcs/internal/errutil"
	"github.com/dvcs-go/dvcs/merge"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// State is one of the two lifecycle states a pull request can be in.
type State string

const (
	Open   State = "open"
	Closed State = "closed"
)

// PullRequest is the persisted record described in spec.md §4.13.
type PullRequest struct {
	Number         int         `json:"number"`
	Title          string      `json:"title"`
	State          State       `json:"state"`
	Base           string      `json:"base"`
	Head           string      `json:"head"`
	CreationCommit hash.Digest `json:"creation_commit"`
}

const pullRequestsDir = "pull_requests"

func dir(reposRoot, repo string) string {
	return filepath.Join(reposRoot, repo, pullRequestsDir)
}

func path(reposRoot, repo string, number int) string {
	return filepath.Join(dir(reposRoot, repo), strconv.Itoa(number)+".json")
}

func load(fs afero.Fs, reposRoot, repo string, number int) (p *PullRequest, err error) {
	f, err := fs.Open(path(reposRoot, repo, number))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound("pull request #%d not found", number)
		}
		return nil, xerrors.Errorf("could not open pull request #%d: %w", number, err)
	}
	defer errutil.Close(f, &err)

	p = &PullRequest{}
	if err := json.NewDecoder(f).Decode(p); err != nil {
		return nil, xerrors.Errorf("could not parse pull request #%d: %w", number, err)
	}
	return p, nil
}

func save(fs afero.Fs, reposRoot, repo string, p *PullRequest) (err error) {
	if err := fs.MkdirAll(dir(reposRoot, repo), 0o755); err != nil {
		return xerrors.Errorf("could not create pull_requests dir: %w", err)
	}
	f, err := fs.Create(path(reposRoot, repo, p.Number))
	if err != nil {
		return xerrors.Errorf("could not create pull request #%d: %w", p.Number, err)
	}
	defer errutil.Close(f, &err)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// List returns every pull request in repo, sorted by number, optionally
// filtered by state ("open", "closed", "all"/"") and base branch.
func List(fs afero.Fs, reposRoot, repo, stateFilter, baseFilter string) ([]*PullRequest, error) {
	entries, err := afero.ReadDir(fs, dir(reposRoot, repo))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, xerrors.Errorf("could not list pull requests: %w", err)
	}

	var out []*PullRequest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		p, err := load(fs, reposRoot, repo, n)
		if err != nil {
			return nil, err
		}
		if stateFilter != "" && stateFilter != "all" && string(p.State) != stateFilter {
			continue
		}
		if baseFilter != "" && p.Base != baseFilter {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Get fetches a single pull request by number.
func Get(fs afero.Fs, reposRoot, repo string, number int) (*PullRequest, error) {
	return load(fs, reposRoot, repo, number)
}

func nextNumber(fs afero.Fs, reposRoot, repo string) (int, error) {
	existing, err := List(fs, reposRoot, repo, "all", "")
	if err != nil {
		return 0, err
	}
	max := 0
	for _, p := range existing {
		if p.Number > max {
			max = p.Number
		}
	}
	return max + 1, nil
}

// Create opens a new pull request base<-head. Fails with a 400
// *errs.HTTPError if base and head share no common ancestor (spec.md
// §4.13).
func Create(fs afero.Fs, reposRoot, repo, metaRoot string, store *objstore.Store, base, head, title string) (*PullRequest, error) {
	baseTip, ok, err := refs.BranchTip(fs, metaRoot, base)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.BadRequest("base branch %q not found", base)
	}
	headTip, ok, err := refs.BranchTip(fs, metaRoot, head)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.BadRequest("head branch %q not found", head)
	}

	lca, err := history.LastCommonAncestor(store, baseTip, headTip)
	if err != nil {
		return nil, err
	}
	if lca.IsZero() {
		return nil, errs.BadRequest("base %q and head %q have no common ancestor", base, head)
	}

	number, err := nextNumber(fs, reposRoot, repo)
	if err != nil {
		return nil, err
	}
	p := &PullRequest{
		Number:         number,
		Title:          title,
		State:          Open,
		Base:           base,
		Head:           head,
		CreationCommit: headTip,
	}
	if err := save(fs, reposRoot, repo, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Commits walks the commit history from the pull request's current
// head tip, stopping at (excluding) its recorded creation commit
// (spec.md §4.13's GET .../commits endpoint).
func Commits(fs afero.Fs, metaRoot string, store *objstore.Store, p *PullRequest) ([]hash.Digest, error) {
	tip, ok, err := refs.BranchTip(fs, metaRoot, p.Head)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound("head branch %q not found", p.Head)
	}

	all, err := history.Ancestors(store, tip)
	if err != nil {
		return nil, err
	}
	out := make([]hash.Digest, 0, len(all))
	for _, d := range all {
		if d == p.CreationCommit {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

// PatchFields is the subset of mutable fields a PATCH request may set
// (spec.md §4.13). A nil pointer leaves the field unchanged.
type PatchFields struct {
	Title *string
	State *string
	Base  *string
}

// Patch applies fields to an existing pull request. Fails with a 404
// *errs.HTTPError if the new base doesn't exist, or a 400 if State
// isn't "open"/"closed".
func Patch(fs afero.Fs, reposRoot, repo, metaRoot string, number int, fields PatchFields) (*PullRequest, error) {
	p, err := load(fs, reposRoot, repo, number)
	if err != nil {
		return nil, err
	}

	if fields.Title != nil {
		p.Title = *fields.Title
	}
	if fields.State != nil {
		if *fields.State != string(Open) && *fields.State != string(Closed) {
			return nil, errs.BadRequest("invalid state %q", *fields.State)
		}
		p.State = State(*fields.State)
	}
	if fields.Base != nil {
		if _, ok, err := refs.BranchTip(fs, metaRoot, *fields.Base); err != nil {
			return nil, err
		} else if !ok {
			return nil, errs.NotFound("base branch %q not found", *fields.Base)
		}
		p.Base = *fields.Base
	}

	if err := save(fs, reposRoot, repo, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Merge runs the merge engine for a pull request's base<-head and, on a
// clean result, closes it. Fails with a 405 *errs.HTTPError if the
// pull request is already closed or the merge produces conflicts
// (spec.md §4.13).
func Merge(fs afero.Fs, reposRoot, repo, metaRoot string, store *objstore.Store, workTree string, number int, identity *config.Config) (*merge.Result, *PullRequest, error) {
	p, err := load(fs, reposRoot, repo, number)
	if err != nil {
		return nil, nil, err
	}
	if p.State == Closed {
		return nil, nil, errs.MethodNotAllowed("pull request #%d is already closed", number)
	}

	baseRef, err := refs.OpenBranch(fs, metaRoot, p.Base)
	if err != nil {
		return nil, nil, err
	}

	result, err := merge.Run(fs, store, workTree, metaRoot, baseRef, p.Head, identity)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Conflicts) > 0 {
		return result, nil, errs.MethodNotAllowed("pull request #%d has merge conflicts", number)
	}

	p.State = Closed
	if err := save(fs, reposRoot, repo, p); err != nil {
		return nil, nil, err
	}
	return result, p, nil
}
