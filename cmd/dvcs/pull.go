package main

import (
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/wire/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newPullCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <remote>",
		Short: "fetch a remote and merge its tracking branch into HEAD",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		remoteName := args[0]

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

		result, err := protocol.Pull(conn, req, r.Store, r.Fs, r.WorkTree, r.MetaRoot, remoteName, identity)
		if err != nil {
			return errors.Wrapf(err, "could not pull %s", remoteName)
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
