package main

import (
	"github.com/dvcs-go/dvcs/history"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLogCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "walk the commit DAG from HEAD, newest first",
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}
		head, err := r.Head()
		if err != nil {
			return errors.Wrap(err, "could not resolve HEAD")
		}

		digests, err := history.Ancestors(r.Store, head.Tip)
		if err != nil {
			return errors.Wrap(err, "could not walk history")
		}

		out := cmd.OutOrStdout()
		for _, d := range digests {
			o, err := r.Store.ReadKind(d, objstore.KindCommit)
			if err != nil {
				return errors.Wrapf(err, "could not read commit %s", d)
			}
			commit, err := objstore.DecodeCommit(o.Payload())
			if err != nil {
				return errors.Wrapf(err, "could not decode commit %s", d)
			}
			fprintf(out, "commit %s\nAuthor: %s <%s>\n\n    %s\n\n", d, commit.Author.Name, commit.Author.Mail, commit.Message)
		}
		return nil
	}
	return cmd
}
