package main

import (
	"bytes"
	"fmt"
	"io"

	picogit "github.com/agbell/pico-git"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newHashObjectCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object FILE",
		Short: "compute an object's id and optionally write it to the store",
		Args:  cobra.ExactArgs(1),
	}

	typ := cmd.Flags().StringP("type", "t", "blob", "the object type")
	write := cmd.Flags().BoolP("write", "w", false, "write the object to the object store")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return hashObjectCmd(cmd.OutOrStdout(), cfg, args[0], *typ, *write)
	}
	return cmd
}

func hashObjectCmd(out io.Writer, cfg *globalFlags, filePath, typ string, write bool) error {
	objType, err := picogit.NewTypeFromString(typ)
	if err != nil {
		return fmt.Errorf("unsupported object type %s", typ)
	}

	content, err := afero.ReadFile(cfg.fs, filePath)
	if err != nil {
		return err
	}

	switch objType {
	case picogit.TypeBlob:
		// any content is a valid blob
	case picogit.TypeTree:
		if _, err := picogit.ParseTree(picogit.NewObject(objType, content)); err != nil {
			return fmt.Errorf("invalid tree file: %w", err)
		}
	case picogit.TypeCommit:
		if _, err := picogit.ParseCommit(picogit.NewObject(objType, content)); err != nil {
			return fmt.Errorf("invalid commit file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported object type %s", typ)
	}

	if !write {
		oid := picogit.NewObject(objType, content).ID()
		fmt.Fprintln(out, oid)
		return nil
	}

	repo, err := picogit.OpenRepository(cfg.fs, cfg.C.String())
	if err != nil {
		return err
	}
	oid, err := repo.Store.Write(objType, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, oid)
	return nil
}
