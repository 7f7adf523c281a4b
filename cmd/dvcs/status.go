package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "print untracked, not-staged and staged files",
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}
		idx, err := r.Index()
		if err != nil {
			return errors.Wrap(err, "could not open index")
		}
		ignoreSet, err := r.IgnoreSet()
		if err != nil {
			return errors.Wrap(err, "could not load ignore file")
		}
		untracked, notStaged, staged, err := idx.Status(r.WorkTree, ignoreSet)
		if err != nil {
			return errors.Wrap(err, "could not compute status")
		}

		out := cmd.OutOrStdout()
		fprintln(out, "staged:")
		for _, p := range staged {
			fprintf(out, "  %s\n", p)
		}
		fprintln(out, "not staged:")
		for _, p := range notStaged {
			fprintf(out, "  %s\n", p)
		}
		fprintln(out, "untracked:")
		for _, p := range untracked {
			fprintf(out, "  %s\n", p)
		}
		return nil
	}
	return cmd
}
