package main

import (
	"net"
	"strings"

	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/wire/protocol"
	"github.com/pkg/errors"
)

// remoteURL is a parsed "git://host[:port]/repo" transport URL (spec.md
// §4.11: "only the git scheme is supported").
type remoteURL struct {
	Host string
	Repo string
}

func parseRemoteURL(raw string) (remoteURL, error) {
	rest := strings.TrimPrefix(raw, "git://")
	if rest == raw {
		return remoteURL{}, errs.NewCommandError(errs.InvalidArgument, "unsupported transport in URL %q, only git:// is supported", raw)
	}
	host, repo, ok := strings.Cut(rest, "/")
	if !ok || repo == "" {
		return remoteURL{}, errs.NewCommandError(errs.InvalidArgument, "malformed remote URL %q", raw)
	}
	return remoteURL{Host: host, Repo: repo}, nil
}

// dialRemote opens the TCP connection a protocol.RequestLine expects and
// returns the fully populated request line alongside it.
func dialRemote(raw string) (net.Conn, protocol.RequestLine, error) {
	u, err := parseRemoteURL(raw)
	if err != nil {
		return nil, protocol.RequestLine{}, err
	}
	host := u.Host
	if !strings.Contains(host, ":") {
		host += ":9418"
	}
	conn, err := net.Dial("tcp", host)
	if err != nil {
		return nil, protocol.RequestLine{}, errors.Wrapf(err, "could not connect to %s", host)
	}
	return conn, protocol.RequestLine{Repo: u.Repo, Host: u.Host}, nil
}
