package main

import (
	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newBranchCmd(cfg *globalFlags) *cobra.Command {
	var deleteName string
	var upstream bool

	cmd := &cobra.Command{
		Use:   "branch [name | -d name | -u <remote-branch> <local-branch>]",
		Short: "list, create, delete, or bind the upstream of a branch",
		Args:  cobra.MaximumNArgs(2),
	}
	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named branch")
	cmd.Flags().BoolVarP(&upstream, "upstream", "u", false, "bind <local-branch>'s upstream to <remote-branch>")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}

		switch {
		case deleteName != "":
			if err := refs.DeleteBranch(r.Fs, r.MetaRoot, deleteName); err != nil {
				return errors.Wrapf(err, "could not delete branch %s", deleteName)
			}
			return nil
		case upstream:
			if len(args) != 2 {
				return errs.NewCommandError(errs.IncorrectAmount, "branch -u requires <remote-branch> <local-branch>")
			}
			remoteCfg, err := refs.LoadRemoteConfig(r.Fs, r.MetaRoot)
			if err != nil {
				return errors.Wrap(err, "could not load remote config")
			}
			names := remoteCfg.RemoteNames()
			remoteName := ""
			if len(names) > 0 {
				remoteName = names[0]
			}
			remoteCfg.SetUpstream(args[1], remoteName, args[0])
			if err := remoteCfg.Save(r.Fs, r.MetaRoot); err != nil {
				return errors.Wrap(err, "could not save remote config")
			}
			return nil
		case len(args) == 1:
			head, err := r.Head()
			if err != nil {
				return errors.Wrap(err, "could not resolve HEAD")
			}
			if err := refs.CreateBranch(r.Fs, r.MetaRoot, args[0], head.Tip); err != nil {
				return errors.Wrapf(err, "could not create branch %s", args[0])
			}
			return nil
		default:
			names, err := refs.ListBranches(r.Fs, r.MetaRoot)
			if err != nil {
				return errors.Wrap(err, "could not list branches")
			}
			for _, name := range names {
				fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}
	}
	return cmd
}
