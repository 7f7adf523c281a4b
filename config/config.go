// Package config reads and writes the repository's identity file
// (spec.md §6: flat "key: value" lines — not INI, so go-ini doesn't
// apply here).
package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/internal/errutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Config holds the committer identity used to author commits and tags.
type Config struct {
	UserName string
	UserMail string
}

const (
	keyUserName = "user_name"
	keyUserMail = "user_mail"
)

// Load parses the config file at path. A missing file yields a zero
// Config, not an error — callers that need an identity call Validate.
func Load(fs afero.Fs, path string) (cfg *Config, err error) {
	cfg = &Config{}

	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, xerrors.Errorf("could not open config at %s: %w", path, err)
	}
	defer errutil.Close(f, &err)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, xerrors.Errorf("line %q: %w", line, errs.NewConfigError("malformed config line"))
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case keyUserName:
			cfg.UserName = value
		case keyUserMail:
			cfg.UserMail = value
		default:
			return nil, xerrors.Errorf("unknown config key %q", key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("could not scan config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg back to path as "key: value" lines.
func (cfg *Config) Save(fs afero.Fs, path string) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return xerrors.Errorf("could not create config at %s: %w", path, err)
	}
	defer errutil.Close(f, &err)

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(keyUserName + ": " + cfg.UserName + "\n"); err != nil {
		return xerrors.Errorf("could not write config: %w", err)
	}
	if _, err := w.WriteString(keyUserMail + ": " + cfg.UserMail + "\n"); err != nil {
		return xerrors.Errorf("could not write config: %w", err)
	}
	return w.Flush()
}

// Validate returns a *errs.ConfigError if the identity is incomplete.
func (cfg *Config) Validate() error {
	if cfg.UserName == "" || cfg.UserMail == "" {
		return errs.NewConfigError("missing user identity: run `dvcs config --user-name <n> --user-mail <m>`")
	}
	return nil
}
