package main

import (
	"github.com/dvcs-go/dvcs/errs"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRemoteCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote [add <name> <url> | rm <name> | rename <old> <new> | get-url <name>]",
		Short: "manage remotes",
		Args:  cobra.MinimumNArgs(0),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}
		remoteCfg, err := refs.LoadRemoteConfig(r.Fs, r.MetaRoot)
		if err != nil {
			return errors.Wrap(err, "could not load remote config")
		}

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			for _, name := range remoteCfg.RemoteNames() {
				fprintln(out, name)
			}
			return nil
		}

		switch args[0] {
		case "add":
			if len(args) != 3 {
				return errs.NewCommandError(errs.IncorrectAmount, "remote add requires <name> <url>")
			}
			if err := remoteCfg.Add(args[1], args[2]); err != nil {
				return errors.Wrapf(err, "could not add remote %s", args[1])
			}
		case "rm":
			if len(args) != 2 {
				return errs.NewCommandError(errs.IncorrectAmount, "remote rm requires <name>")
			}
			if err := remoteCfg.Remove(args[1]); err != nil {
				return errors.Wrapf(err, "could not remove remote %s", args[1])
			}
		case "rename":
			if len(args) != 3 {
				return errs.NewCommandError(errs.IncorrectAmount, "remote rename requires <old> <new>")
			}
			if err := remoteCfg.Rename(args[1], args[2]); err != nil {
				return errors.Wrapf(err, "could not rename remote %s", args[1])
			}
		case "get-url":
			if len(args) != 2 {
				return errs.NewCommandError(errs.IncorrectAmount, "remote get-url requires <name>")
			}
			remote, ok := remoteCfg.Get(args[1])
			if !ok {
				return errs.NewCommandError(errs.InvalidArgument, "unknown remote %s", args[1])
			}
			fprintln(out, remote.URL)
			return nil
		default:
			return errs.NewCommandError(errs.UnknownOption, "unknown remote subcommand %q", args[0])
		}

		return remoteCfg.Save(r.Fs, r.MetaRoot)
	}
	return cmd
}
