package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRmCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "unstage one or more files",
		Args:  cobra.MinimumNArgs(1),
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
		for _, path := range args {
			if err := idx.Remove(path); err != nil {
				return errors.Wrapf(err, "could not unstage %s", path)
			}
		}
		if err := idx.Save(); err != nil {
			return errors.Wrap(err, "could not save index")
		}
		return nil
	}
	return cmd
}
