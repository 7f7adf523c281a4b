package main

import (
	"github.com/dvcs-go/dvcs"
	"github.com/dvcs-go/dvcs/wire/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newCloneCmd(cfg *globalFlags) *cobra.Command {
	var remoteName string

	cmd := &cobra.Command{
		Use:   "clone <git://host/repo> <dir>",
		Short: "clone a remote repository into a new working tree",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&remoteName, "origin", "origin", "name to give the new remote")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		url, dir := args[0], args[1]

		conn, req, err := dialRemote(url)
		if err != nil {
			return err
		}
		defer conn.Close()

		fs := afero.NewOsFs()
		r, err := dvcs.Init(fs, dir)
		if err != nil {
			return errors.Wrapf(err, "could not initialize %s", dir)
		}

		if err := protocol.Clone(conn, req, r.Store, fs, r.WorkTree, r.MetaRoot, remoteName, url); err != nil {
			return errors.Wrapf(err, "could not clone %s", url)
		}
		return nil
	}
	return cmd
}
