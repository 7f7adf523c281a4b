// Package server implements the concurrent multi-repository server of
// spec.md §4.12: a TCP listener that sniffs each connection's first
// four bytes to dispatch between the HTTP pull-request API (§4.13) and
// the upload-pack/receive-pack wire protocol (§4.11), arbitrating
// concurrent access to each repository through internal/synctable's
// reader/writer lock table (§5). No example in the pack runs this kind
// of protocol-sniffing listener, so the accept loop and dispatch are
// written directly from spec.md; per-connection logging follows
// antgroup-hugescm's pkg/serve/httpserver, the only long-lived server
// in the corpus, which logs one structured line per request via
// logrus.
package server

import (
	"bufio"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/dvcs-go/dvcs/internal/synctable"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/server/httpapi"
	"github.com/dvcs-go/dvcs/wire/protocol"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Config holds everything needed to stand up a Server.
type Config struct {
	// Listen is the TCP address to accept connections on, e.g. ":9418".
	Listen string
	// ReposRoot is the base directory under which every served
	// repository's working tree lives: ReposRoot/<repo>/.
	ReposRoot string
	// Fs is the filesystem every repository is served from. Production
	// code passes afero.NewOsFs(); tests pass afero.NewMemMapFs().
	Fs afero.Fs
	// Logger receives one structured entry per connection and per HTTP
	// request. A nil Logger installs logrus.StandardLogger().
	Logger *logrus.Logger
}

// Server is the TCP listener plus its per-repository lock table.
type Server struct {
	cfg      Config
	log      *logrus.Logger
	listener net.Listener
	locks    *synctable.RepoLocks
	http     *httpapi.API

	mu     sync.Mutex
	accept bool
	wg     sync.WaitGroup
}

// New builds a Server bound to cfg.Listen but does not yet accept
// connections; call ListenAndServe for that.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Server{
		cfg:    cfg,
		log:    cfg.Logger,
		locks:  synctable.New(),
		http:   httpapi.New(cfg.Fs, cfg.ReposRoot),
		accept: true,
	}
}

// RepoPaths returns the working-tree root and metadata directory for a
// repository served from ReposRoot.
func (s *Server) RepoPaths(repo string) (workTree, metaRoot string) {
	workTree = filepath.Join(s.cfg.ReposRoot, repo)
	return workTree, objpath.Root(workTree)
}

// ListenAndServe opens the TCP listener and accepts connections until
// Shutdown flips the accept flag, each on its own worker goroutine
// (spec.md §5: "each accepted connection is handled on a freshly
// spawned worker ... and lives until that connection finishes").
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return xerrors.Errorf("could not listen on %s: %w", s.cfg.Listen, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.log.Infof("server listening on %s", s.cfg.Listen)

	for {
		conn, err := l.Accept()
		if err != nil {
			if !s.accepting() {
				s.wg.Wait()
				return nil
			}
			s.log.Errorf("accept error: %v", err)
			continue
		}
		if !s.accepting() {
			_ = conn.Close()
			s.wg.Wait()
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Addr returns the address ListenAndServe bound to, or nil if it hasn't
// started listening yet. Mainly useful for tests that bind ":0" and
// need to discover the port the kernel assigned.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accept
}

// Shutdown flips the accept flag false and dials the listener's own
// address to unblock a pending Accept, then waits for every live
// worker to finish (spec.md §4.12's admin-console "quit" command).
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.accept = false
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		if conn, err := net.DialTimeout("tcp", listener.Addr().String(), time.Second); err == nil {
			_ = conn.Close()
		}
	}
	s.wg.Wait()
}

// sniffLen is the number of leading bytes peeked to tell an HTTP
// request from a pkt-line request (spec.md §4.12: `"PUT "`, `"GET "`,
// `"POST"`, `"PATC"` dispatch to the HTTP handler; anything else is
// framed as a pkt-line length).
const sniffLen = 4

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close() //nolint:errcheck // best-effort on a worker exit path
	start := time.Now()
	remote := conn.RemoteAddr().String()
	connID := uuid.New().String()

	br := bufio.NewReader(conn)
	peek, err := br.Peek(sniffLen)
	if err != nil {
		s.log.WithFields(logrus.Fields{"remote": remote, "conn_id": connID}).Debugf("connection closed before a request: %v", err)
		return
	}

	if isHTTPPrefix(string(peek)) {
		s.serveHTTPConn(conn, br, remote, connID, start)
		return
	}
	s.serveProtocolConn(conn, br, remote, connID, start)
}

func isHTTPPrefix(prefix string) bool {
	switch prefix {
	case "PUT ", "GET ", "POST", "PATC":
		return true
	}
	return false
}

func (s *Server) serveProtocolConn(conn net.Conn, br *bufio.Reader, remote, connID string, start time.Time) {
	rw := bufio.NewReadWriter(br, bufio.NewWriter(conn))
	req, err := protocol.ReadRequestLine(rw.Reader)
	if err != nil {
		s.log.WithFields(logrus.Fields{"remote": remote, "conn_id": connID}).Errorf("malformed request line: %v", err)
		return
	}

	repo := strings.Trim(req.Repo, "/")
	_, metaRoot := s.RepoPaths(repo)
	store := objstore.New(s.cfg.Fs, metaRoot)

	logEntry := s.log.WithFields(logrus.Fields{
		"remote":  remote,
		"conn_id": connID,
		"repo":    repo,
		"service": string(req.Service),
	})

	ads, err := s.advertise(metaRoot)
	if err != nil {
		logEntry.Errorf("could not build ref advertisement: %v", err)
		return
	}

	switch req.Service {
	case protocol.UploadPack:
		s.locks.RLock(repo)
		defer s.locks.RUnlock(repo)
		err = protocol.ServeUploadPack(rw, store, ads)
	case protocol.ReceivePack:
		s.locks.Lock(repo)
		defer s.locks.Unlock(repo)
		err = protocol.ServeReceivePack(rw, s.cfg.Fs, store, metaRoot, ads)
	default:
		err = xerrors.Errorf("unknown service %q", req.Service)
	}

	if err != nil {
		logEntry.Errorf("request failed after %v: %v", time.Since(start), err)
		return
	}
	logEntry.Infof("request served in %v", time.Since(start))
}

// advertise builds the ref-advertisement list for the repository rooted
// at metaRoot: HEAD plus every local branch tip (spec.md §4.11).
func (s *Server) advertise(metaRoot string) ([]protocol.RefAd, error) {
	var ads []protocol.RefAd

	head, err := refs.Open(s.cfg.Fs, metaRoot)
	if err != nil {
		return nil, err
	}
	if head.State == refs.Attached {
		ads = append(ads, protocol.RefAd{Name: protocol.HeadRefName, Digest: head.Tip})
	}

	names, err := refs.ListBranches(s.cfg.Fs, metaRoot)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		tip, ok, err := refs.BranchTip(s.cfg.Fs, metaRoot, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ads = append(ads, protocol.RefAd{Name: "refs/heads/" + name, Digest: tip})
	}
	return ads, nil
}

func (s *Server) serveHTTPConn(conn net.Conn, br *bufio.Reader, remote, connID string, start time.Time) {
	req, err := readHTTPRequest(br, conn)
	if err != nil {
		s.log.WithFields(logrus.Fields{"remote": remote, "conn_id": connID}).Errorf("malformed HTTP request: %v", err)
		return
	}
	req.RemoteAddr = remote

	rec := newResponseRecorder(conn)
	rec.Header().Set("X-Request-Id", connID)
	s.http.ServeHTTP(rec, req)
	if err := rec.Flush(); err != nil {
		s.log.WithFields(logrus.Fields{"remote": remote, "conn_id": connID}).Errorf("could not write HTTP response: %v", err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"remote":  remote,
		"conn_id": connID,
		"method":  req.Method,
		"path":    req.URL.Path,
		"status":  rec.status,
		"spent":   time.Since(start),
	}).Info("http request served")
}
