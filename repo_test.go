package dvcs_test

import (
	"testing"

	"github.com/dvcs-go/dvcs"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestInit_RefusesExisting(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()

	_, err := dvcs.Init(fs, "/repo")
	require.NoError(t, err)

	_, err = dvcs.Init(fs, "/repo")
	require.Error(t, err)
}

func TestOpen_RequiresInit(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()

	_, err := dvcs.Open(fs, "/repo")
	require.Error(t, err)

	_, err = dvcs.Init(fs, "/repo")
	require.NoError(t, err)

	r, err := dvcs.Open(fs, "/repo")
	require.NoError(t, err)

	head, err := r.Head()
	require.NoError(t, err)
	require.Equal(t, refs.Unborn, head.State)
	require.Equal(t, refs.DefaultBranch, head.Name)
}

func TestRepository_ConfigRoundTrip(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	r, err := dvcs.Init(fs, "/repo")
	require.NoError(t, err)

	cfg, err := r.Config()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.UserName = "Ada"
	cfg.UserMail = "ada@example.com"
	require.NoError(t, r.SaveConfig(cfg))

	reopened, err := dvcs.Open(fs, "/repo")
	require.NoError(t, err)
	got, err := reopened.Config()
	require.NoError(t, err)
	require.Equal(t, "Ada", got.UserName)
	require.Equal(t, "ada@example.com", got.UserMail)
}

func TestRepository_IgnoreSet(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	r, err := dvcs.Init(fs, "/repo")
	require.NoError(t, err)

	set, err := r.IgnoreSet()
	require.NoError(t, err)
	require.Empty(t, set)

	require.NoError(t, afero.WriteFile(fs, "/repo/.dvcsignore", []byte("build/\n*.log\n"), 0o644))
	set, err = r.IgnoreSet()
	require.NoError(t, err)
	require.True(t, set["build/"])
	require.True(t, set["*.log"])
}
