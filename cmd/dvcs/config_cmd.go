package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newConfigCmd(cfg *globalFlags) *cobra.Command {
	var userName, userMail string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "update the repository's stored identity",
	}
	cmd.Flags().StringVar(&userName, "user-name", "", "committer name")
	cmd.Flags().StringVar(&userMail, "user-mail", "", "committer email")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}

		identity, err := r.Config()
		if err != nil {
			return errors.Wrap(err, "could not load config")
		}
		if userName != "" {
			identity.UserName = userName
		}
		if userMail != "" {
			identity.UserMail = userMail
		}
		if err := r.SaveConfig(identity); err != nil {
			return errors.Wrap(err, "could not save config")
		}
		return nil
	}
	return cmd
}
