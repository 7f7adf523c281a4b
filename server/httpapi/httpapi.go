// Package httpapi implements the pull-request HTTP service of spec.md
// §4.13 on top of github.com/gorilla/mux, the router used by
// antgroup-hugescm's pkg/serve/httpserver — the only long-lived HTTP
// server in the retrieved pack. Endpoint logic itself (create/list/
// get/patch/merge) lives in server/pr; this package is the thin
// request-parsing/response-rendering layer spec.md's table describes.
package httpapi

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dvcs-go/dvcs/config"
	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/internal/objpath"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/server/pr"
	"github.com/gorilla/mux"
	"github.com/spf13/afero"
)

// API is the gorilla/mux router backing the pull-request service.
type API struct {
	fs        afero.Fs
	reposRoot string
	router    *mux.Router
}

// New builds an API serving every repository under reposRoot.
func New(fs afero.Fs, reposRoot string) *API {
	a := &API{fs: fs, reposRoot: reposRoot}
	r := mux.NewRouter()
	r.HandleFunc("/repos/{repo}/pulls", a.createPR).Methods(http.MethodPost)
	r.HandleFunc("/repos/{repo}/pulls", a.listPRs).Methods(http.MethodGet)
	r.HandleFunc("/repos/{repo}/pulls/{n}/commits", a.commitsPR).Methods(http.MethodGet)
	r.HandleFunc("/repos/{repo}/pulls/{n}/merge", a.mergePR).Methods(http.MethodPut)
	r.HandleFunc("/repos/{repo}/pulls/{n}", a.getPR).Methods(http.MethodGet)
	r.HandleFunc("/repos/{repo}/pulls/{n}", a.patchPR).Methods(http.MethodPatch)
	a.router = r
	return a
}

// ServeHTTP makes API an http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) paths(repo string) (workTree, metaRoot string) {
	workTree = filepath.Join(a.reposRoot, repo)
	return workTree, objpath.Root(workTree)
}

func pathNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		return 0, errs.BadRequest("invalid pull request number %q", mux.Vars(r)["n"])
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if httpErr, ok := err.(*errs.HTTPError); ok {
		http.Error(w, httpErr.Msg, httpErr.Status)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

type createPRBody struct {
	Base  string `json:"base"`
	Head  string `json:"head"`
	Title string `json:"title"`
}

func (a *API) createPR(w http.ResponseWriter, r *http.Request) {
	repo := mux.Vars(r)["repo"]
	var body createPRBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.BadRequest("malformed request body: %v", err))
		return
	}

	_, metaRoot := a.paths(repo)
	store := objstore.New(a.fs, metaRoot)
	p, err := pr.Create(a.fs, a.reposRoot, repo, metaRoot, store, body.Base, body.Head, body.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) listPRs(w http.ResponseWriter, r *http.Request) {
	repo := mux.Vars(r)["repo"]
	q := r.URL.Query()
	prs, err := pr.List(a.fs, a.reposRoot, repo, q.Get("state"), q.Get("base"))
	if err != nil {
		writeError(w, err)
		return
	}
	if prs == nil {
		prs = []*pr.PullRequest{}
	}
	writeJSON(w, http.StatusOK, prs)
}

func (a *API) getPR(w http.ResponseWriter, r *http.Request) {
	repo := mux.Vars(r)["repo"]
	n, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := pr.Get(a.fs, a.reposRoot, repo, n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) commitsPR(w http.ResponseWriter, r *http.Request) {
	repo := mux.Vars(r)["repo"]
	n, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}

	_, metaRoot := a.paths(repo)
	store := objstore.New(a.fs, metaRoot)
	p, err := pr.Get(a.fs, a.reposRoot, repo, n)
	if err != nil {
		writeError(w, err)
		return
	}
	commits, err := pr.Commits(a.fs, metaRoot, store, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

type patchPRBody struct {
	Title *string `json:"title"`
	State *string `json:"state"`
	Base  *string `json:"base"`
}

func (a *API) patchPR(w http.ResponseWriter, r *http.Request) {
	repo := mux.Vars(r)["repo"]
	n, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body patchPRBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.BadRequest("malformed request body: %v", err))
		return
	}

	_, metaRoot := a.paths(repo)
	p, err := pr.Patch(a.fs, a.reposRoot, repo, metaRoot, n, pr.PatchFields{
		Title: body.Title,
		State: body.State,
		Base:  body.Base,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type mergePRBody struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

func (a *API) mergePR(w http.ResponseWriter, r *http.Request) {
	repo := mux.Vars(r)["repo"]
	n, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body mergePRBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.BadRequest("malformed request body: %v", err))
		return
	}

	workTree, metaRoot := a.paths(repo)
	store := objstore.New(a.fs, metaRoot)
	identity := &config.Config{UserName: body.User, UserMail: body.User}

	_, updated, err := pr.Merge(a.fs, a.reposRoot, repo, metaRoot, store, workTree, n, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
