package main

import (
	"github.com/dvcs-go/dvcs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newInitCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "create the repository metadata layout",
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if _, err := dvcs.Init(afero.NewOsFs(), cfg.workTree); err != nil {
			return errors.Wrap(err, "could not init repository")
		}
		fprintln(cmd.OutOrStdout(), "initialized empty repository in", cfg.workTree)
		return nil
	}
	return cmd
}
