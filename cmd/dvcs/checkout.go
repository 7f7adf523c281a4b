package main

import (
	"github.com/dvcs-go/dvcs/refs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCheckoutCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout <branch>",
		Short: "switch HEAD and the working tree to another branch",
		Args:  cobra.ExactArgs(1),
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
		if err := idx.CheckForChanges(r.WorkTree, ignoreSet); err != nil {
			return err
		}
		if err := refs.CheckoutTo(r.Fs, r.Store, r.WorkTree, r.MetaRoot, args[0]); err != nil {
			return errors.Wrapf(err, "could not checkout %s", args[0])
		}
		return nil
	}
	return cmd
}
