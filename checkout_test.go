package picogit_test

import (
	"testing"

	picogit "github.com/agbell/pico-git"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutTreeMaterializesFilesAndDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := picogit.NewObjectStore(fs, "/src/.git")

	require.NoError(t, afero.WriteFile(fs, "/src/top.txt", []byte("top"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/dir/nested.txt", []byte("nested"), 0o644))

	treeID, ok, err := picogit.WriteTree(fs, store, "/src")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, picogit.CheckoutTree(fs, store, treeID, "/dst"))

	got, err := afero.ReadFile(fs, "/dst/top.txt")
	require.NoError(t, err)
	assert.Equal(t, "top", string(got))

	got, err = afero.ReadFile(fs, "/dst/dir/nested.txt")
	require.NoError(t, err)
	assert.Equal(t, "nested", string(got))
}

func TestCheckoutCommitFollowsCommitToTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := picogit.NewObjectStore(fs, "/src/.git")

	require.NoError(t, afero.WriteFile(fs, "/src/file.txt", []byte("content"), 0o644))
	treeID, ok, err := picogit.WriteTree(fs, store, "/src")
	require.NoError(t, err)
	require.True(t, ok)

	who := picogit.Signature{Name: "A", Email: "a@example.com"}
	commitID, err := picogit.CommitTree(store, treeID, nil, who, "msg")
	require.NoError(t, err)

	require.NoError(t, picogit.CheckoutCommit(fs, store, commitID, "/dst"))
	got, err := afero.ReadFile(fs, "/dst/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(got))
}
