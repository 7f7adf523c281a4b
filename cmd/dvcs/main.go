// Command dvcs is the CLI front-end over the dvcs core (spec.md §6):
// init, config, add, rm, commit, status, branch, checkout, merge, log,
// remote, clone/fetch/pull/push, tag. Grounded on Nivl-git-go's
// cmd/git-go, which wires one newXCmd(cfg) *cobra.Command constructor
// per subcommand into a single root command the same way.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalFlags is the state shared by every subcommand, mirroring the
// teacher's own cfg struct threaded through newXCmd constructors.
type globalFlags struct {
	workTree string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dvcs",
		Short:         "a content-addressed distributed version-control system",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cfg := &globalFlags{}
	cmd.PersistentFlags().StringVarP(&cfg.workTree, "C", "C", "", "run as if dvcs was started in the given path")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfg.workTree == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg.workTree = wd
		}
		return nil
	}

	cmd.AddCommand(
		newInitCmd(cfg),
		newConfigCmd(cfg),
		newAddCmd(cfg),
		newRmCmd(cfg),
		newCommitCmd(cfg),
		newStatusCmd(cfg),
		newBranchCmd(cfg),
		newCheckoutCmd(cfg),
		newMergeCmd(cfg),
		newLogCmd(cfg),
		newRemoteCmd(cfg),
		newTagCmd(cfg),
		newCloneCmd(cfg),
		newFetchCmd(cfg),
		newPullCmd(cfg),
		newPushCmd(cfg),
	)
	return cmd
}
