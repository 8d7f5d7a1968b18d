package main

import (
	"fmt"
	"io"

	picogit "github.com/agbell/pico-git"
	"github.com/agbell/pico-git/config"
	"github.com/spf13/cobra"
)

func newCommitTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-tree TREE",
		Short: "create a new commit object from a tree and optional parents",
		Args:  cobra.ExactArgs(1),
	}

	parents := cmd.Flags().StringArrayP("parent", "p", nil, "id of a parent commit (repeatable)")
	message := cmd.Flags().StringP("message", "m", "", "the commit message")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return commitTreeCmd(cmd.OutOrStdout(), cfg, args[0], *parents, *message)
	}
	return cmd
}

func commitTreeCmd(out io.Writer, cfg *globalFlags, treeName string, parentNames []string, message string) error {
	repo, err := picogit.OpenRepository(cfg.fs, cfg.C.String())
	if err != nil {
		return err
	}

	treeID, err := picogit.NewOidFromStr(treeName)
	if err != nil {
		return fmt.Errorf("not a valid tree %q", treeName)
	}

	parentIDs := make([]picogit.Oid, len(parentNames))
	for i, p := range parentNames {
		id, err := picogit.NewOidFromStr(p)
		if err != nil {
			return fmt.Errorf("not a valid parent commit %q", p)
		}
		parentIDs[i] = id
	}

	identity := config.ResolveIdentity(cfg.fs, repo.GitDir(), false)
	who := picogit.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  config.Now(),
	}

	id, err := picogit.CommitTree(repo.Store, treeID, parentIDs, who, message)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id)
	return nil
}
