package picogit_test

import (
	"testing"

	picogit "github.com/agbell/pico-git"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobOid(t *testing.T, store *picogit.ObjectStore, content string) picogit.Oid {
	t.Helper()
	o := picogit.NewObject(picogit.TypeBlob, []byte(content))
	oid, err := store.WriteObject(o)
	require.NoError(t, err)
	return oid
}

func TestTreeToObjectThenParseTreeRoundTrips(t *testing.T) {
	store := newTestStore(t)
	fileID := blobOid(t, store, "hello\n")

	tree := &picogit.Tree{Entries: []picogit.TreeEntry{
		{Mode: picogit.ModeFile, Name: "hello.txt", ID: fileID},
	}}
	o := tree.ToObject()
	assert.Equal(t, picogit.TypeTree, o.Type())

	parsed, err := picogit.ParseTree(o)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, "hello.txt", parsed.Entries[0].Name)
	assert.Equal(t, picogit.ModeFile, parsed.Entries[0].Mode)
	assert.Equal(t, fileID, parsed.Entries[0].ID)
}

func TestParseTreeRejectsWrongType(t *testing.T) {
	o := picogit.NewObject(picogit.TypeBlob, []byte("not a tree"))
	_, err := picogit.ParseTree(o)
	assert.ErrorIs(t, err, picogit.ErrObjectInvalid)
}

func TestWriteTreeOrdersDirectoriesAsIfSlashSuffixed(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := picogit.NewObjectStore(fs, "/repo/.git")

	// "a" (a directory) must sort after "a.txt" (0x2E < 0x2F) and
	// before "ab" (0x2F < 0x62).
	require.NoError(t, afero.WriteFile(fs, "/repo/a.txt", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/a/nested", []byte("y"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/ab", []byte("z"), 0o644))

	id, ok, err := picogit.WriteTree(fs, store, "/repo")
	require.NoError(t, err)
	require.True(t, ok)

	o, err := store.ReadObject(id)
	require.NoError(t, err)
	tree, err := picogit.ParseTree(o)
	require.NoError(t, err)

	names := make([]string, len(tree.Entries))
	for i, e := range tree.Entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"a.txt", "a", "ab"}, names)
}

func TestWriteTreeElidesEmptyDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := picogit.NewObjectStore(fs, "/repo/.git")

	require.NoError(t, fs.MkdirAll("/repo/empty", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/repo/file.txt", []byte("content"), 0o644))

	id, ok, err := picogit.WriteTree(fs, store, "/repo")
	require.NoError(t, err)
	require.True(t, ok)

	o, err := store.ReadObject(id)
	require.NoError(t, err)
	tree, err := picogit.ParseTree(o)
	require.NoError(t, err)

	require.Len(t, tree.Entries, 1)
	assert.Equal(t, "file.txt", tree.Entries[0].Name)
}

func TestWriteTreeExcludesDotGit(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := picogit.NewObjectStore(fs, "/repo/.git")

	require.NoError(t, afero.WriteFile(fs, "/repo/.git/HEAD", []byte("ref: refs/heads/master\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/README.md", []byte("hi"), 0o644))

	id, ok, err := picogit.WriteTree(fs, store, "/repo")
	require.NoError(t, err)
	require.True(t, ok)

	o, err := store.ReadObject(id)
	require.NoError(t, err)
	tree, err := picogit.ParseTree(o)
	require.NoError(t, err)

	require.Len(t, tree.Entries, 1)
	assert.Equal(t, "README.md", tree.Entries[0].Name)
}

func TestWriteTreeOnEmptyDirectoryReturnsNotOk(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := picogit.NewObjectStore(fs, "/repo/.git")
	require.NoError(t, fs.MkdirAll("/repo", 0o755))

	_, ok, err := picogit.WriteTree(fs, store, "/repo")
	require.NoError(t, err)
	assert.False(t, ok)
}
