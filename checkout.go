package picogit

import (
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// CheckoutCommit materializes the working tree of commitID under dir,
// recursively writing every blob as a file and every tree as a
// directory. dir is created if it doesn't already exist.
func CheckoutCommit(fs afero.Fs, store *ObjectStore, commitID Oid, dir string) error {
	o, err := store.ReadObject(commitID)
	if err != nil {
		return xerrors.Errorf("checkout: reading commit %s: %w", commitID, err)
	}
	c, err := ParseCommit(o)
	if err != nil {
		return xerrors.Errorf("checkout: %w", err)
	}
	return CheckoutTree(fs, store, c.TreeID, dir)
}

// CheckoutTree recursively materializes the tree identified by treeID
// under dir.
func CheckoutTree(fs afero.Fs, store *ObjectStore, treeID Oid, dir string) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return wrap(KindIo, "creating checkout directory "+dir, err)
	}

	o, err := store.ReadObject(treeID)
	if err != nil {
		return xerrors.Errorf("checkout: reading tree %s: %w", treeID, err)
	}
	t, err := ParseTree(o)
	if err != nil {
		return xerrors.Errorf("checkout: %w", err)
	}

	for _, e := range t.Entries {
		path := filepath.Join(dir, e.Name)
		switch e.Mode {
		case ModeDirectory:
			if err := CheckoutTree(fs, store, e.ID, path); err != nil {
				return err
			}
		case ModeSymlink, ModeFile:
			_, blob, err := store.Open(e.ID.String())
			if err != nil {
				return xerrors.Errorf("checkout: reading blob %s for %s: %w", e.ID, path, err)
			}
			err = afero.WriteReader(fs, path, blob)
			blob.Close() //nolint:errcheck
			if err != nil {
				return wrap(KindIo, "writing checked-out file "+path, err)
			}
		default:
			return wrap(KindUnsupported, "tree entry "+e.Name+" has unsupported mode "+e.Mode, ErrTreeInvalid)
		}
	}
	return nil
}
