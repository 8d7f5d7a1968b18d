package picogit_test

import (
	"testing"
	"time"

	picogit "github.com/agbell/pico-git"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitToObjectThenParseCommitRoundTrips(t *testing.T) {
	treeID, err := picogit.NewOidFromStr("4b825dc642cb6eb9a060e54bf8d69288fbee4904")
	require.NoError(t, err)
	parentID, err := picogit.NewOidFromStr("ce013625030ba8dba906f756967f9e9ca394464a")
	require.NoError(t, err)

	c := &picogit.Commit{
		TreeID:    treeID,
		ParentIDs: []picogit.Oid{parentID},
		Author:    picogit.Signature{Name: "A U Thor", Email: "author@example.com", When: time.Unix(1135641779, 0).UTC()},
		Committer: picogit.Signature{Name: "C O Mitter", Email: "committer@example.com", When: time.Unix(1135641779, 0).UTC()},
		Message:   "initial commit\n",
	}

	parsed, err := picogit.ParseCommit(c.ToObject())
	require.NoError(t, err)

	assert.Equal(t, treeID, parsed.TreeID)
	assert.Equal(t, []picogit.Oid{parentID}, parsed.ParentIDs)
	assert.Equal(t, "A U Thor", parsed.Author.Name)
	assert.Equal(t, "author@example.com", parsed.Author.Email)
	assert.Equal(t, "initial commit\n", parsed.Message)
}

func TestCommitSignatureString(t *testing.T) {
	sig := picogit.Signature{Name: "A U Thor", Email: "author@example.com", When: time.Unix(1135641779, 0).UTC()}
	assert.Equal(t, "A U Thor <author@example.com> 1135641779 +0000", sig.String())
}

func TestParseCommitRejectsMissingTree(t *testing.T) {
	o := picogit.NewObject(picogit.TypeCommit, []byte("author x <x@x> 1 +0000\ncommitter x <x@x> 1 +0000\n\nmsg"))
	_, err := picogit.ParseCommit(o)
	assert.ErrorIs(t, err, picogit.ErrCommitInvalid)
}

func TestCommitTreeRequiresExistingTree(t *testing.T) {
	store := newTestStore(t)
	_, err := picogit.CommitTree(store, picogit.NullOid, nil, picogit.Signature{Name: "x", Email: "x@x", When: time.Now()}, "msg")
	require.Error(t, err)
	var perr *picogit.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, picogit.KindPrecondition, perr.Kind)
}

func TestCommitTreeWritesACommit(t *testing.T) {
	store := newTestStore(t)
	treeObj := picogit.NewObject(picogit.TypeTree, nil)
	treeID, err := store.WriteObject(treeObj)
	require.NoError(t, err)

	who := picogit.Signature{Name: "A U Thor", Email: "author@example.com", When: time.Unix(1135641779, 0).UTC()}
	commitID, err := picogit.CommitTree(store, treeID, nil, who, "first commit\n")
	require.NoError(t, err)

	o, err := store.ReadObject(commitID)
	require.NoError(t, err)
	c, err := picogit.ParseCommit(o)
	require.NoError(t, err)
	assert.Equal(t, treeID, c.TreeID)
	assert.Empty(t, c.ParentIDs)
	assert.Equal(t, "first commit\n", c.Message)
}
