package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	picogit "github.com/agbell/pico-git"
	"github.com/spf13/cobra"
)

func newCatFileCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file (-t | -s | -p) OBJECT",
		Short: "provide content or type/size information for a repository object",
		Args:  cobra.ExactArgs(1),
	}

	typeOnly := cmd.Flags().BoolP("t", "t", false, "show the object's type")
	sizeOnly := cmd.Flags().BoolP("s", "s", false, "show the object's size")
	prettyPrint := cmd.Flags().BoolP("p", "p", false, "pretty-print the object's content based on its type")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return catFileCmd(cmd.OutOrStdout(), cfg, catFileParams{
			typeOnly:    *typeOnly,
			sizeOnly:    *sizeOnly,
			prettyPrint: *prettyPrint,
			objectName:  args[0],
		})
	}
	return cmd
}

type catFileParams struct {
	typeOnly    bool
	sizeOnly    bool
	prettyPrint bool
	objectName  string
}

func catFileCmd(out io.Writer, cfg *globalFlags, p catFileParams) error {
	switch {
	case p.typeOnly && p.sizeOnly, p.typeOnly && p.prettyPrint, p.sizeOnly && p.prettyPrint:
		return errors.New("only one of -t, -s, -p may be given")
	case !p.typeOnly && !p.sizeOnly && !p.prettyPrint:
		return errors.New("one of -t, -s, -p is required")
	}

	repo, err := picogit.OpenRepository(cfg.fs, cfg.C.String())
	if err != nil {
		return err
	}

	oid, err := picogit.NewOidFromStr(p.objectName)
	if err != nil {
		return fmt.Errorf("not a valid object name %q", p.objectName)
	}

	o, err := repo.Store.ReadObject(oid)
	if err != nil {
		return err
	}

	switch {
	case p.sizeOnly:
		fmt.Fprintln(out, strconv.Itoa(o.Size()))
	case p.typeOnly:
		fmt.Fprintln(out, o.Type().String())
	case p.prettyPrint:
		return prettyPrintObject(out, o)
	}
	return nil
}

func prettyPrintObject(out io.Writer, o *picogit.Object) error {
	switch o.Type() {
	case picogit.TypeBlob:
		_, err := out.Write(o.Bytes())
		return err
	case picogit.TypeTree:
		t, err := picogit.ParseTree(o)
		if err != nil {
			return err
		}
		for _, e := range t.Entries {
			fmt.Fprintf(out, "%s %s %s\t%s\n", e.FormattedMode(), e.ObjectType(), e.ID, e.Name)
		}
		return nil
	case picogit.TypeCommit:
		c, err := picogit.ParseCommit(o)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "tree %s\n", c.TreeID)
		for _, p := range c.ParentIDs {
			fmt.Fprintf(out, "parent %s\n", p)
		}
		fmt.Fprintf(out, "author %s\n", c.Author)
		fmt.Fprintf(out, "committer %s\n", c.Committer)
		fmt.Fprintln(out)
		fmt.Fprint(out, c.Message)
		return nil
	case picogit.TypeTag:
		t, err := picogit.ParseTag(o)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "object %s\n", t.Target)
		fmt.Fprintf(out, "type %s\n", t.Type)
		fmt.Fprintf(out, "tag %s\n", t.Name)
		fmt.Fprintf(out, "tagger %s\n", t.Tagger)
		fmt.Fprintln(out)
		fmt.Fprint(out, t.Message)
		return nil
	default:
		return fmt.Errorf("pretty-print not supported for type %s", o.Type())
	}
}
