package main

import (
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/wire/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newFetchCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <remote>",
		Short: "download objects and refs from a remote",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		remoteName := args[0]

		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}
		remoteCfg, err := refs.LoadRemoteConfig(r.Fs, r.MetaRoot)
		if err != nil {
			return errors.Wrap(err, "could not load remote config")
		}
		remote, ok := remoteCfg.Get(remoteName)
		if !ok {
			return errors.Errorf("unknown remote %s", remoteName)
		}

		conn, req, err := dialRemote(remote.URL)
		if err != nil {
			return err
		}
		defer conn.Close()

		ads, err := protocol.Fetch(conn, req, r.Store, r.Fs, r.MetaRoot, remoteName)
		if err != nil {
			return errors.Wrapf(err, "could not fetch %s", remoteName)
		}

		out := cmd.OutOrStdout()
		for _, ad := range ads {
			fprintf(out, "%s %s\n", ad.Digest, ad.Name)
		}
		return nil
	}
	return cmd
}
