package picogit

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agbell/pico-git/internal/readutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// excludedTreeEntries lists the directory names write-tree never
// descends into, matching spec.md §4.3's hardcoded policy.
var excludedTreeEntries = map[string]bool{
	".git":   true,
	"target": true,
}

// Tree mode strings, stored as ASCII exactly as they're written on
// disk. Git's on-disk tree format uses a 5-digit mode for directories
// (not a zero-padded 6), and this implementation never emits the
// executable bit.
const (
	ModeFile      = "100644"
	ModeSymlink   = "120000"
	ModeDirectory = "40000"
)

// TreeEntry is one line of a tree object: a mode, a name, and the Oid
// of the entry's blob or sub-tree.
type TreeEntry struct {
	Mode string
	Name string
	ID   Oid
}

// ObjectType returns the kind of object this entry's Oid refers to.
func (e TreeEntry) ObjectType() Type {
	if e.Mode == ModeDirectory {
		return TypeTree
	}
	return TypeBlob
}

// FormattedMode zero-pads Mode to 6 digits for display, matching git's
// ls-tree/cat-file -p output (e.g. "40000" renders as "040000"). The
// on-disk tree encoding in ToObject/ParseTree is unaffected; this is
// display-only.
func (e TreeEntry) FormattedMode() string {
	if len(e.Mode) >= 6 {
		return e.Mode
	}
	return strings.Repeat("0", 6-len(e.Mode)) + e.Mode
}

// Tree is a parsed tree object: an ordered list of entries.
type Tree struct {
	Entries []TreeEntry
}

// ToObject renders a Tree into its canonical on-disk Object: each entry
// as "<mode> <name>\0<20-byte oid>", back to back, in the order already
// held by Entries (callers are responsible for having sorted them with
// sortTreeEntries).
func (t *Tree) ToObject() *Object {
	var buf []byte
	for _, e := range t.Entries {
		buf = append(buf, []byte(e.Mode)...)
		buf = append(buf, ' ')
		buf = append(buf, []byte(e.Name)...)
		buf = append(buf, 0)
		buf = append(buf, e.ID.Bytes()...)
	}
	return NewObject(TypeTree, buf)
}

// ParseTree decodes a tree Object's payload into entries. Each entry's
// name must be valid UTF-8.
func ParseTree(o *Object) (*Tree, error) {
	if o.Type() != TypeTree {
		return nil, xerrors.Errorf("type %s is not a tree: %w", o.Type(), ErrObjectInvalid)
	}

	data := o.Bytes()
	entries := []TreeEntry{}
	offset := 0
	for i := 1; offset < len(data); i++ {
		modeBytes := readutil.ReadTo(data[offset:], ' ')
		if modeBytes == nil {
			return nil, xerrors.Errorf("entry %d: missing mode: %w", i, ErrTreeInvalid)
		}
		offset += len(modeBytes) + 1

		nameBytes := readutil.ReadTo(data[offset:], 0)
		if nameBytes == nil {
			return nil, xerrors.Errorf("entry %d: missing name: %w", i, ErrTreeInvalid)
		}
		if !isValidUTF8(nameBytes) {
			return nil, xerrors.Errorf("entry %d: name is not valid UTF-8: %w", i, ErrTreeInvalid)
		}
		offset += len(nameBytes) + 1

		if offset+OidSize > len(data) {
			return nil, xerrors.Errorf("entry %d: truncated oid: %w", i, ErrTreeInvalid)
		}
		id, err := NewOidFromHex(data[offset : offset+OidSize])
		if err != nil {
			return nil, xerrors.Errorf("entry %d: invalid oid: %w", i, ErrTreeInvalid)
		}
		offset += OidSize

		entries = append(entries, TreeEntry{
			Mode: string(modeBytes),
			Name: string(nameBytes),
			ID:   id,
		})
	}
	return &Tree{Entries: entries}, nil
}

func isValidUTF8(b []byte) bool {
	return strings.ToValidUTF8(string(b), "�") == string(b)
}

// sortTreeEntries orders entries using git's augmented byte comparator:
// directory names sort as though suffixed with "/", so "a.txt" sorts
// before the directory "a" (0x2E < 0x2F), which in turn sorts before
// "ab" (0x2F < 0x62).
func sortTreeEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return compareTreeNames(entries[i]) < compareTreeNames(entries[j])
	})
}

func compareTreeNames(e TreeEntry) string {
	if e.Mode == ModeDirectory {
		return e.Name + "/"
	}
	return e.Name
}

// WriteTree recursively walks dir, building a Tree for every
// non-excluded file and subdirectory, and publishes each resulting
// object through store, child-first. A subdirectory that produces no
// retained entries contributes nothing to its parent and never gets a
// tree object of its own. WriteTree returns (NullOid, false, nil) if dir
// has no retained entries at all; the caller decides whether that's an
// error (it is, at the root).
func WriteTree(fs afero.Fs, store *ObjectStore, dir string) (Oid, bool, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return NullOid, false, wrap(KindIo, "reading directory "+dir, err)
	}

	entries := make([]TreeEntry, 0, len(infos))
	for _, fi := range infos {
		name := fi.Name()
		if excludedTreeEntries[name] {
			continue
		}
		childPath := filepath.Join(dir, name)

		switch {
		case fi.IsDir():
			id, ok, err := WriteTree(fs, store, childPath)
			if err != nil {
				return NullOid, false, err
			}
			if !ok {
				continue // empty-subdirectory elision
			}
			entries = append(entries, TreeEntry{Mode: ModeDirectory, Name: name, ID: id})
		case fi.Mode()&os.ModeSymlink != 0:
			target, err := readSymlink(fs, childPath)
			if err != nil {
				return NullOid, false, err
			}
			id, err := store.Write(TypeBlob, strings.NewReader(target), int64(len(target)))
			if err != nil {
				return NullOid, false, err
			}
			entries = append(entries, TreeEntry{Mode: ModeSymlink, Name: name, ID: id})
		default:
			h, r, err := store.FromFile(childPath)
			if err != nil {
				return NullOid, false, err
			}
			id, err := store.Write(TypeBlob, r, int64(h.Size))
			r.Close() //nolint:errcheck
			if err != nil {
				return NullOid, false, err
			}
			entries = append(entries, TreeEntry{Mode: ModeFile, Name: name, ID: id})
		}
	}

	if len(entries) == 0 {
		return NullOid, false, nil
	}

	sortTreeEntries(entries)
	t := &Tree{Entries: entries}
	id, err := store.WriteObject(t.ToObject())
	if err != nil {
		return NullOid, false, err
	}
	return id, true, nil
}

// readSymlink is a seam so an afero backend that doesn't support
// symlinks (e.g. an in-memory fs used in tests) degrades to an empty
// link target instead of panicking.
func readSymlink(fs afero.Fs, path string) (string, error) {
	if lf, ok := fs.(afero.LinkReader); ok {
		target, err := lf.ReadlinkIfPossible(path)
		if err != nil {
			return "", wrap(KindIo, "reading symlink "+path, err)
		}
		return target, nil
	}
	return "", nil
}
