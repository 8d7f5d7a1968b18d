package main

import (
	"os"

	"github.com/agbell/pico-git/internal/pathutil"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// globalFlags holds the flags every subcommand inherits from the root
// command.
type globalFlags struct {
	C  pathutil.DirValue
	fs afero.Fs
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pico-git",
		Short:         "a minimal, content-addressed git object store and clone client",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	cfg := &globalFlags{fs: afero.NewOsFs()}
	cfg.C.Set(cwd) //nolint:errcheck // cwd is always a valid, existing directory
	cmd.PersistentFlags().VarP(&cfg.C, "C", "C", "run as if pico-git was started in the provided path")

	cmd.AddCommand(newInitCmd(cfg))
	cmd.AddCommand(newCatFileCmd(cfg))
	cmd.AddCommand(newHashObjectCmd(cfg))
	cmd.AddCommand(newLsTreeCmd(cfg))
	cmd.AddCommand(newWriteTreeCmd(cfg))
	cmd.AddCommand(newCommitTreeCmd(cfg))
	cmd.AddCommand(newCloneCmd(cfg))

	return cmd
}
