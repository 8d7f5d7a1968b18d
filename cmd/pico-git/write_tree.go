package main

import (
	"fmt"
	"io"

	picogit "github.com/agbell/pico-git"
	"github.com/spf13/cobra"
)

func newWriteTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-tree",
		Short: "create a tree object from the current working directory",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return writeTreeCmd(cmd.OutOrStdout(), cfg)
	}
	return cmd
}

func writeTreeCmd(out io.Writer, cfg *globalFlags) error {
	repo, err := picogit.OpenRepository(cfg.fs, cfg.C.String())
	if err != nil {
		return err
	}

	id, ok, err := picogit.WriteTree(cfg.fs, repo.Store, repo.WorkDir())
	if err != nil {
		return err
	}
	if !ok {
		return &picogit.Error{Kind: picogit.KindPrecondition, Context: "write-tree: working directory has no trackable files"}
	}
	fmt.Fprintln(out, id)
	return nil
}
