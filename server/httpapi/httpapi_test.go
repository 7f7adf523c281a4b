package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/server/httpapi"
	"github.com/dvcs-go/dvcs/server/pr"
	"github.com/dvcs-go/dvcs/tree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	reposRoot = "/srv"
	repo      = "demo"
	metaRoot  = "/srv/demo/.dvcs"
	workTree  = "/srv/demo"
)

func commitFile(t *testing.T, store *objstore.Store, parent hash.Digest, path, content string, when int64) hash.Digest {
	t.Helper()
	blob, err := store.Write(objstore.KindBlob, []byte(content))
	require.NoError(t, err)
	treeDigest, err := tree.BuildFromIndex([]tree.Entry{{Path: path, Digest: blob}}).Write(store)
	require.NoError(t, err)

	var parents []hash.Digest
	if !parent.IsZero() {
		parents = []hash.Digest{parent}
	}
	sig := objstore.Signature{Name: "Ada", Mail: "ada@example.com", Time: when, TZ: "+0000"}
	c := &objstore.Commit{Tree: treeDigest, Parents: parents, Author: sig, Committer: sig, Message: "c"}
	d, err := store.WriteObject(c.ToObject())
	require.NoError(t, err)
	return d
}

func TestCreateGetMergePR(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	store := objstore.New(fs, metaRoot)
	require.NoError(t, store.Init())

	c1 := commitFile(t, store, hash.Zero, "a.txt", "hello\n", 100)
	c2 := commitFile(t, store, c1, "b.txt", "world\n", 200)
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "master", c1))
	require.NoError(t, refs.CreateBranch(fs, metaRoot, "feature", c2))
	require.NoError(t, refs.CheckoutTo(fs, store, workTree, metaRoot, "master"))

	api := httpapi.New(fs, reposRoot)

	body, err := json.Marshal(map[string]string{"base": "master", "head": "feature", "title": "add b"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/repos/demo/pulls", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created pr.PullRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, 1, created.Number)

	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/repos/demo/pulls/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	mergeBody, err := json.Marshal(map[string]string{"user": "Ada"})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/repos/demo/pulls/1/merge", bytes.NewReader(mergeBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	var merged pr.PullRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &merged))
	require.Equal(t, pr.Closed, merged.State)
}

func TestGetPR_NotFound(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	api := httpapi.New(fs, reposRoot)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/repos/demo/pulls/1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
