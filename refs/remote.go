package refs

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/dvcs-go/dvcs/internal/errutil"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Remote is a named remote URL.
type Remote struct {
	Name string
	URL  string
}

// Upstream binds a local branch to a remote-tracking branch (spec.md
// §3: "a mapping from local-branch → (remote-name, remote-branch)").
type Upstream struct {
	Local         string
	RemoteName    string
	RemoteBranch  string
}

// RemoteConfig is the parsed content of the `remote` file.
type RemoteConfig struct {
	Remotes   []Remote
	Upstreams []Upstream
}

// LoadRemoteConfig parses the remote file at metaRoot. A missing file
// yields an empty config.
func LoadRemoteConfig(fs afero.Fs, metaRoot string) (cfg *RemoteConfig, err error) {
	cfg = &RemoteConfig{}

	f, err := fs.Open(objpath.RemotePath(metaRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, xerrors.Errorf("could not open remote config: %w", err)
	}
	defer errutil.Close(f, &err)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "remote":
			if len(fields) != 3 {
				return nil, xerrors.Errorf("malformed remote line %q: %w", line, ErrFormat)
			}
			cfg.Remotes = append(cfg.Remotes, Remote{Name: fields[1], URL: fields[2]})
		case "branch":
			if len(fields) != 4 {
				return nil, xerrors.Errorf("malformed branch line %q: %w", line, ErrFormat)
			}
			cfg.Upstreams = append(cfg.Upstreams, Upstream{Local: fields[1], RemoteName: fields[2], RemoteBranch: fields[3]})
		default:
			return nil, xerrors.Errorf("unknown remote config line %q: %w", line, ErrFormat)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("could not scan remote config: %w", err)
	}
	return cfg, nil
}

// Save serializes cfg back to the remote file.
func (cfg *RemoteConfig) Save(fs afero.Fs, metaRoot string) (err error) {
	f, err := fs.Create(objpath.RemotePath(metaRoot))
	if err != nil {
		return xerrors.Errorf("could not create remote config: %w", err)
	}
	defer errutil.Close(f, &err)

	w := bufio.NewWriter(f)
	for _, r := range cfg.Remotes {
		if _, err := w.WriteString("remote " + r.Name + " " + r.URL + "\n"); err != nil {
			return xerrors.Errorf("could not write remote config: %w", err)
		}
	}
	for _, u := range cfg.Upstreams {
		if _, err := w.WriteString("branch " + u.Local + " " + u.RemoteName + " " + u.RemoteBranch + "\n"); err != nil {
			return xerrors.Errorf("could not write remote config: %w", err)
		}
	}
	return w.Flush()
}

// Get returns the remote named name.
func (cfg *RemoteConfig) Get(name string) (Remote, bool) {
	for _, r := range cfg.Remotes {
		if r.Name == name {
			return r, true
		}
	}
	return Remote{}, false
}

// Add appends a new remote. Fails ErrRemoteExists if name is taken.
func (cfg *RemoteConfig) Add(name, url string) error {
	if _, ok := cfg.Get(name); ok {
		return xerrors.Errorf("%s: %w", name, ErrRemoteExists)
	}
	cfg.Remotes = append(cfg.Remotes, Remote{Name: name, URL: url})
	return nil
}

// Remove deletes the remote named name and any upstream bindings that
// reference it. Fails ErrRemoteNotFound if absent.
func (cfg *RemoteConfig) Remove(name string) error {
	idx := -1
	for i, r := range cfg.Remotes {
		if r.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return xerrors.Errorf("%s: %w", name, ErrRemoteNotFound)
	}
	cfg.Remotes = append(cfg.Remotes[:idx], cfg.Remotes[idx+1:]...)

	kept := cfg.Upstreams[:0]
	for _, u := range cfg.Upstreams {
		if u.RemoteName != name {
			kept = append(kept, u)
		}
	}
	cfg.Upstreams = kept
	return nil
}

// Rename renames a remote, updating every upstream binding that
// references it.
func (cfg *RemoteConfig) Rename(oldName, newName string) error {
	found := false
	for i, r := range cfg.Remotes {
		if r.Name == oldName {
			cfg.Remotes[i].Name = newName
			found = true
			break
		}
	}
	if !found {
		return xerrors.Errorf("%s: %w", oldName, ErrRemoteNotFound)
	}
	for i, u := range cfg.Upstreams {
		if u.RemoteName == oldName {
			cfg.Upstreams[i].RemoteName = newName
		}
	}
	return nil
}

// SetUpstream binds localBranch to (remoteName, remoteBranch),
// replacing any existing binding for localBranch.
func (cfg *RemoteConfig) SetUpstream(localBranch, remoteName, remoteBranch string) {
	for i, u := range cfg.Upstreams {
		if u.Local == localBranch {
			cfg.Upstreams[i].RemoteName = remoteName
			cfg.Upstreams[i].RemoteBranch = remoteBranch
			return
		}
	}
	cfg.Upstreams = append(cfg.Upstreams, Upstream{Local: localBranch, RemoteName: remoteName, RemoteBranch: remoteBranch})
}

// Upstream returns the upstream binding for localBranch, if any.
func (cfg *RemoteConfig) Upstream(localBranch string) (Upstream, bool) {
	for _, u := range cfg.Upstreams {
		if u.Local == localBranch {
			return u, true
		}
	}
	return Upstream{}, false
}

// RemoteNames returns every configured remote name, sorted.
func (cfg *RemoteConfig) RemoteNames() []string {
	names := make([]string, 0, len(cfg.Remotes))
	for _, r := range cfg.Remotes {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}
