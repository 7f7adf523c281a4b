package main

import (
	"github.com/dvcs-go/dvcs/merge"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newMergeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <branch>",
		Short: "merge another branch into the current one",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}
		identity, err := r.Config()
		if err != nil {
			return errors.Wrap(err, "could not load config")
		}
		if err := identity.Validate(); err != nil {
			return err
		}
		head, err := r.Head()
		if err != nil {
			return errors.Wrap(err, "could not resolve HEAD")
		}
		idx, err := r.Index()
		if err != nil {
			return errors.Wrap(err, "could not open index")
		}
		ignoreSet, err := r.IgnoreSet()
		if err != nil {
			return errors.Wrap(err, "could not load ignore file")
		}
		if err := idx.CheckForChanges(r.WorkTree, ignoreSet); err != nil {
			return err
		}

		result, err := merge.Run(r.Fs, r.Store, r.WorkTree, r.MetaRoot, head, args[0], identity)
		if err != nil {
			return errors.Wrapf(err, "could not merge %s", args[0])
		}

		out := cmd.OutOrStdout()
		if len(result.Conflicts) > 0 {
			fprintln(out, "CONFLICT: fix the markers below, add and commit:")
			for _, p := range result.Conflicts {
				fprintf(out, "  %s\n", p)
			}
			return nil
		}
		for _, p := range result.Modified {
			fprintf(out, "  %s\n", p)
		}
		return nil
	}
	return cmd
}
