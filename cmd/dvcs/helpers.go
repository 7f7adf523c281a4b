package main

import (
	"fmt"
	"io"

	"github.com/dvcs-go/dvcs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// loadRepository opens the repository rooted at cfg.workTree, matching
// the teacher's own loadRepository helper in cmd/git-go/helpers.go.
func loadRepository(cfg *globalFlags) (*dvcs.Repository, error) {
	r, err := dvcs.Open(afero.NewOsFs(), cfg.workTree)
	if err != nil {
		return nil, errors.Wrap(err, "could not open repository")
	}
	return r, nil
}

func fprintln(out io.Writer, msg ...interface{}) {
	fmt.Fprintln(out, msg...)
}

func fprintf(out io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(out, format, a...)
}
