package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	picogit "github.com/agbell/pico-git"
	"github.com/agbell/pico-git/pack"
	"github.com/spf13/cobra"
)

func newCloneCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone URL [DIRECTORY]",
		Short: "clone a remote repository over the smart HTTP protocol",
		Args:  cobra.RangeArgs(1, 2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		url := args[0]
		dir := directoryFromURL(url)
		if len(args) == 2 {
			dir = args[1]
		}
		return cloneCmd(cmd.OutOrStdout(), cfg, url, dir)
	}
	return cmd
}

func directoryFromURL(url string) string {
	url = strings.TrimSuffix(url, "/")
	url = strings.TrimSuffix(url, ".git")
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}

func cloneCmd(out io.Writer, cfg *globalFlags, url, dir string) error {
	if err := cfg.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create %s: %w", dir, err)
	}
	repo, err := picogit.InitRepository(cfg.fs, dir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	client := &http.Client{}

	refs, err := pack.Discover(ctx, client, url)
	if err != nil {
		return fmt.Errorf("discovering refs: %w", err)
	}

	head, branchRef, err := resolveHeadRef(refs)
	if err != nil {
		return err
	}

	data, err := pack.Fetch(ctx, client, url, hex.EncodeToString(head[:]))
	if err != nil {
		return fmt.Errorf("fetching packfile: %w", err)
	}

	result, err := pack.Apply(repo.Store, data)
	if err != nil {
		return fmt.Errorf("applying packfile: %w", err)
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(out, "warning:", w)
	}

	headOid, err := picogit.NewOidFromHex(head[:])
	if err != nil {
		return err
	}
	if err := repo.SetBranchTarget(branchRef, headOid); err != nil {
		return err
	}

	if err := picogit.CheckoutCommit(cfg.fs, repo.Store, headOid, repo.WorkDir()); err != nil {
		return fmt.Errorf("checking out %s: %w", headOid, err)
	}

	fmt.Fprintf(out, "Cloning into %q...\n", dir)
	fmt.Fprintf(out, "received %d objects\n", len(result.Objects))
	return nil
}

// resolveHeadRef finds what HEAD should point to among the advertised
// refs: the ref literally named HEAD if present, falling back to
// refs/heads/master.
func resolveHeadRef(refs []pack.Ref) ([20]byte, string, error) {
	var headOid [20]byte
	found := false
	for _, r := range refs {
		if r.Name == "HEAD" {
			return r.Oid, "refs/heads/master", nil
		}
		if r.Name == "refs/heads/master" {
			headOid = r.Oid
			found = true
		}
	}
	if !found {
		return headOid, "", fmt.Errorf("remote has no HEAD or refs/heads/master")
	}
	return headOid, "refs/heads/master", nil
}
