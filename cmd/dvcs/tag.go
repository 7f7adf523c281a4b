package main

import (
	"time"

	"github.com/dvcs-go/dvcs/refs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newTagCmd(cfg *globalFlags) *cobra.Command {
	var deleteName string
	var listPattern string
	var showName string
	var message string

	cmd := &cobra.Command{
		Use:   "tag [name | -d name | -l pattern | -v name | -m message name]",
		Short: "create, list, show, or delete tags",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named tag")
	cmd.Flags().StringVarP(&listPattern, "list", "l", "", "list tags matching a glob pattern")
	cmd.Flags().StringVarP(&showName, "show", "v", "", "show the named tag")
	cmd.Flags().StringVarP(&message, "message", "m", "", "annotate the new tag with a message")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := loadRepository(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		switch {
		case deleteName != "":
			if err := refs.DeleteTag(r.Fs, r.MetaRoot, deleteName); err != nil {
				return errors.Wrapf(err, "could not delete tag %s", deleteName)
			}
			return nil
		case listPattern != "":
			tags, err := refs.MatchTags(r.Fs, r.MetaRoot, listPattern)
			if err != nil {
				return errors.Wrap(err, "could not list tags")
			}
			for _, t := range tags {
				fprintln(out, t.Name)
			}
			return nil
		case showName != "":
			t, err := refs.GetTag(r.Fs, r.MetaRoot, showName)
			if err != nil {
				return errors.Wrapf(err, "could not find tag %s", showName)
			}
			fprintf(out, "tag %s\nTagger: %s\nCommit: %s\n\n    %s\n", t.Name, t.Creator, t.Commit, t.Message)
			return nil
		case len(args) == 1:
			identity, err := r.Config()
			if err != nil {
				return errors.Wrap(err, "could not load config")
			}
			if err := identity.Validate(); err != nil {
				return err
			}
			head, err := r.Head()
			if err != nil {
				return errors.Wrap(err, "could not resolve HEAD")
			}
			tag := refs.Tag{
				Name:      args[0],
				Creator:   identity.UserName,
				Commit:    head.Tip,
				Message:   message,
				CreatedAt: time.Now(),
			}
			if err := refs.CreateTag(r.Fs, r.MetaRoot, tag); err != nil {
				return errors.Wrapf(err, "could not create tag %s", args[0])
			}
			return nil
		default:
			tags, err := refs.LoadTags(r.Fs, r.MetaRoot)
			if err != nil {
				return errors.Wrap(err, "could not list tags")
			}
			for _, t := range tags {
				fprintln(out, t.Name)
			}
			return nil
		}
	}
	return cmd
}
