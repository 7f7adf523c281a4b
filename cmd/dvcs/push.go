package main

import (
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/wire/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newPushCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <remote> <branch>",
		Short: "upload the named branch's objects and ref to a remote",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		remoteName, branch := args[0], args[1]

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

		ads, err := protocol.Push(conn, req, r.Store, r.Fs, r.MetaRoot, branch)
		if err != nil {
			return errors.Wrapf(err, "could not push %s to %s", branch, remoteName)
		}

		out := cmd.OutOrStdout()
		for _, ad := range ads {
			fprintf(out, "%s %s\n", ad.Digest, ad.Name)
		}
		return nil
	}
	return cmd
}
