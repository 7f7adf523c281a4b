package main

import (
	"time"

	"github.com/dvcs-go/dvcs/hash"
	"github.com/dvcs-go/dvcs/objstore"
	"github.com/dvcs-go/dvcs/refs"
	"github.com/dvcs-go/dvcs/tree"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCommitCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit <message>",
		Short: "author a commit from the current index",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return commitCmd(cfg, args[0])
	}
	return cmd
}

func commitCmd(cfg *globalFlags, message string) error {
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

	entries := make([]tree.Entry, 0, len(idx.Paths()))
	for _, p := range idx.Paths() {
		e, _ := idx.Get(p)
		entries = append(entries, tree.Entry{Path: p, Digest: e.Current})
	}
	treeDigest, err := tree.BuildFromIndex(entries).Write(r.Store)
	if err != nil {
		return errors.Wrap(err, "could not write tree")
	}

	head, err := r.Head()
	if err != nil {
		return errors.Wrap(err, "could not resolve HEAD")
	}

	parents := []hash.Digest{}
	if head.State == refs.Attached {
		parents = append(parents, head.Tip)
	}
	if mergingBranch, ok, err := refs.Merging(r.Fs, r.MetaRoot); err != nil {
		return errors.Wrap(err, "could not check merge state")
	} else if ok {
		otherTip, ok, err := refs.BranchTip(r.Fs, r.MetaRoot, mergingBranch)
		if err != nil {
			return errors.Wrap(err, "could not resolve merging branch")
		}
		if ok {
			parents = append(parents, otherTip)
		}
	}

	now := time.Now()
	sig := objstore.Signature{
		Name: identity.UserName,
		Mail: identity.UserMail,
		Time: now.Unix(),
		TZ:   now.Format("-0700"),
	}
	commit := &objstore.Commit{
		Tree:      treeDigest,
		Parents:   parents,
		Author:    sig,
		Committer: sig,
		Message:   message,
	}
	commitDigest, err := r.Store.WriteObject(commit.ToObject())
	if err != nil {
		return errors.Wrap(err, "could not write commit")
	}

	if err := head.SetLastCommit(commitDigest); err != nil {
		return errors.Wrap(err, "could not update branch")
	}
	if _, ok, err := refs.Merging(r.Fs, r.MetaRoot); err == nil && ok {
		if err := refs.ClearMerging(r.Fs, r.MetaRoot); err != nil {
			return errors.Wrap(err, "could not clear merge state")
		}
	}

	idx.ResetPrevious()
	if err := idx.Save(); err != nil {
		return errors.Wrap(err, "could not save index")
	}
	return nil
}
