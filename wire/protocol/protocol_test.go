package protocol_test

import (
	"bufio"
	"bytes"
	"net"
	"testing"

	"github.com/dvcs-go/dvcs/config"
	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/wire/protocol"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestRequestLine_RoundTrip(t *testing.T) {
	t.Parallel()
	req := protocol.RequestLine{Service: protocol.UploadPack, Repo: "demo", Host: "example.com"}

	var buf bytes.Buffer
	require.NoError(t, protocol.WriteRequestLine(&buf, req))

	got, err := protocol.ReadRequestLine(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestRefAdvertisement_RoundTrip(t *testing.T) {
	t.Parallel()
	ads := []protocol.RefAd{
		{Name: "refs/heads/master", Digest: hash.Sum([]byte("a"))},
		{Name: protocol.HeadRefName, Digest: hash.Sum([]byte("a"))},
		{Name: "refs/heads/side", Digest: hash.Sum([]byte("b"))},
	}

	var buf bytes.Buffer
	require.NoError(t, protocol.AdvertiseRefs(&buf, ads))

	got, err := protocol.ReadRefAdvertisement(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, protocol.HeadRefName, got[0].Name)
	require.Equal(t, ads[0].Digest, got[0].Digest)
}

func TestClone_FetchesBranchesAndChecksOutHead(t *testing.T) {
	t.Parallel()

	serverFs := afero.NewMemMapFs()
	serverStore := objstore.New(serverFs, "/server/.dvcs")
	require.NoError(t, serverStore.Init())

	blobDigest, err := serverStore.Write(objstore.KindBlob, []byte("hello\n"))
	require.NoError(t, err)
	tr, err := objstore.NewTree([]objstore.TreeEntry{
		{Name: "a.txt", Mode: objstore.ModeFile, Digest: blobDigest},
	})
	require.NoError(t, err)
	treeDigest, err := serverStore.Write(objstore.KindTree, tr.Encode())
	require.NoError(t, err)
	commit := &objstore.Commit{
		Tree:      treeDigest,
		Author:    objstore.Signature{Name: "a", Mail: "a@example.com", Time: 1, TZ: "+0000"},
		Committer: objstore.Signature{Name: "a", Mail: "a@example.com", Time: 1, TZ: "+0000"},
		Message:   "root",
	}
	commitDigest, err := serverStore.Write(objstore.KindCommit, commit.Encode())
	require.NoError(t, err)

	require.NoError(t, refs.CreateBranch(serverFs, "/server/.dvcs", "master", commitDigest))

	ads := []protocol.RefAd{
		{Name: protocol.HeadRefName, Digest: commitDigest},
		{Name: "refs/heads/master", Digest: commitDigest},
	}

	serverConn, clientConn := net.Pipe()
	done := make(chan error, 1)
	go func() {
		rw := bufio.NewReadWriter(bufio.NewReader(serverConn), bufio.NewWriter(serverConn))
		if _, err := protocol.ReadRequestLine(rw.Reader); err != nil {
			done <- err
			return
		}
		done <- protocol.ServeUploadPack(rw, serverStore, ads)
	}()

	clientFs := afero.NewMemMapFs()
	clientStore := objstore.New(clientFs, "/client/.dvcs")
	req := protocol.RequestLine{Repo: "demo", Host: "localhost"}

	err = protocol.Clone(clientConn, req, clientStore, clientFs, "/client", "/client/.dvcs", "origin", "localhost/demo")
	require.NoError(t, err)
	require.NoError(t, <-done)

	content, err := afero.ReadFile(clientFs, "/client/a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(content))

	head, err := refs.Open(clientFs, "/client/.dvcs")
	require.NoError(t, err)
	require.Equal(t, "master", head.Name)
	require.Equal(t, commitDigest, head.Tip)

	cfg, err := refs.LoadRemoteConfig(clientFs, "/client/.dvcs")
	require.NoError(t, err)
	remote, ok := cfg.Get("origin")
	require.True(t, ok)
	require.Equal(t, "localhost/demo", remote.URL)
	up, ok := cfg.Upstream("master")
	require.True(t, ok)
	require.Equal(t, "origin", up.RemoteName)
}

func TestPush_SendsNewCommitToServer(t *testing.T) {
	t.Parallel()

	identity := &config.Config{UserName: "a", UserMail: "a@example.com"}

	clientFs := afero.NewMemMapFs()
	clientStore := objstore.New(clientFs, "/client/.dvcs")
	require.NoError(t, clientStore.Init())

	blobDigest, err := clientStore.Write(objstore.KindBlob, []byte("hi\n"))
	require.NoError(t, err)
	tr, err := objstore.NewTree([]objstore.TreeEntry{
		{Name: "a.txt", Mode: objstore.ModeFile, Digest: blobDigest},
	})
	require.NoError(t, err)
	treeDigest, err := clientStore.Write(objstore.KindTree, tr.Encode())
	require.NoError(t, err)
	commit := &objstore.Commit{
		Tree:      treeDigest,
		Author:    objstore.Signature{Name: identity.UserName, Mail: identity.UserMail, Time: 1, TZ: "+0000"},
		Committer: objstore.Signature{Name: identity.UserName, Mail: identity.UserMail, Time: 1, TZ: "+0000"},
		Message:   "root",
	}
	commitDigest, err := clientStore.Write(objstore.KindCommit, commit.Encode())
	require.NoError(t, err)
	require.NoError(t, refs.CreateBranch(clientFs, "/client/.dvcs", "master", commitDigest))

	serverFs := afero.NewMemMapFs()
	serverStore := objstore.New(serverFs, "/server/.dvcs")
	require.NoError(t, serverStore.Init())

	serverConn, clientConn := net.Pipe()
	done := make(chan error, 1)
	go func() {
		rw := bufio.NewReadWriter(bufio.NewReader(serverConn), bufio.NewWriter(serverConn))
		if _, err := protocol.ReadRequestLine(rw.Reader); err != nil {
			done <- err
			return
		}
		done <- protocol.ServeReceivePack(rw, serverFs, serverStore, "/server/.dvcs", nil)
	}()

	req := protocol.RequestLine{Repo: "demo", Host: "localhost"}
	_, err = protocol.Push(clientConn, req, clientStore, clientFs, "/client/.dvcs", "master")
	require.NoError(t, err)
	require.NoError(t, <-done)

	tip, ok, err := refs.BranchTip(serverFs, "/server/.dvcs", "master")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, commitDigest, tip)

	ok, err = serverStore.Has(treeDigest)
	require.NoError(t, err)
	require.True(t, ok)
}
