package main

import (
	"fmt"
	"io"
	"path"

	picogit "github.com/agbell/pico-git"
	"github.com/spf13/cobra"
)

func newLsTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree TREE",
		Short: "list the contents of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	recurse := cmd.Flags().BoolP("recurse", "r", false, "recurse into sub-trees instead of listing them")
	nameOnly := cmd.Flags().Bool("name-only", false, "list only filenames")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return lsTreeCmd(cmd.OutOrStdout(), cfg, args[0], *recurse, *nameOnly)
	}
	return cmd
}

func lsTreeCmd(out io.Writer, cfg *globalFlags, treeName string, recurse, nameOnly bool) error {
	repo, err := picogit.OpenRepository(cfg.fs, cfg.C.String())
	if err != nil {
		return err
	}
	id, err := picogit.NewOidFromStr(treeName)
	if err != nil {
		return fmt.Errorf("not a valid object name %q", treeName)
	}
	return listTree(out, repo, id, recurse, nameOnly, "")
}

func listTree(out io.Writer, repo *picogit.Repository, id picogit.Oid, recurse, nameOnly bool, pathPrefix string) error {
	o, err := repo.Store.ReadObject(id)
	if err != nil {
		return err
	}
	if o.Type() != picogit.TypeTree {
		return fmt.Errorf("incorrect object type %q", o.Type())
	}
	t, err := picogit.ParseTree(o)
	if err != nil {
		return err
	}

	for _, e := range t.Entries {
		if recurse && e.Mode == picogit.ModeDirectory {
			if err := listTree(out, repo, e.ID, recurse, nameOnly, path.Join(pathPrefix, e.Name)); err != nil {
				return err
			}
			continue
		}

		name := path.Join(pathPrefix, e.Name)
		if nameOnly {
			fmt.Fprintln(out, name)
			continue
		}
		fmt.Fprintf(out, "%s %s %s\t%s\n", e.FormattedMode(), e.ObjectType(), e.ID, name)
	}
	return nil
}
