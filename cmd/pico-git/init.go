package main

import (
	"errors"
	"fmt"
	"io"

	picogit "github.com/agbell/pico-git"
	"github.com/spf13/cobra"
)

func newInitCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "create an empty repository",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := cfg.C.String()
		if len(args) > 0 {
			dir = args[0]
		}
		return initCmd(cmd.OutOrStdout(), cfg, dir)
	}

	return cmd
}

func initCmd(out io.Writer, cfg *globalFlags, dir string) error {
	if err := cfg.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create %s: %w", dir, err)
	}

	_, err := picogit.InitRepository(cfg.fs, dir)
	switch {
	case err == nil:
		fmt.Fprintf(out, "Initialized empty pico-git repository in %s/.git\n", dir)
		return nil
	case errors.Is(err, picogit.ErrRepositoryExists):
		fmt.Fprintf(out, "Reinitialized existing pico-git repository in %s/.git\n", dir)
		return nil
	default:
		return err
	}
}
