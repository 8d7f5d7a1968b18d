package picogit_test

import (
	"testing"

	picogit "github.com/agbell/pico-git"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	body := "object ce013625030ba8dba906f756967f9e9ca394464a\n" +
		"type blob\n" +
		"tag v1.0\n" +
		"tagger A U Thor <author@example.com> 1135641779 +0000\n" +
		"\n" +
		"release notes\n"
	o := picogit.NewObject(picogit.TypeTag, []byte(body))

	tag, err := picogit.ParseTag(o)
	require.NoError(t, err)

	assert.Equal(t, "v1.0", tag.Name)
	assert.Equal(t, picogit.TypeBlob, tag.Type)
	assert.Equal(t, "A U Thor", tag.Tagger.Name)
	assert.Equal(t, "release notes\n", tag.Message)
}

func TestParseTagRejectsMissingTarget(t *testing.T) {
	body := "type blob\ntagger x <x@x> 1 +0000\n\nmsg"
	o := picogit.NewObject(picogit.TypeTag, []byte(body))
	_, err := picogit.ParseTag(o)
	assert.ErrorIs(t, err, picogit.ErrTagInvalid)
}

func TestParseTagSkipsGPGSignature(t *testing.T) {
	body := "object ce013625030ba8dba906f756967f9e9ca394464a\n" +
		"type commit\n" +
		"tag signed\n" +
		"tagger A U Thor <author@example.com> 1135641779 +0000\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		"garbage line 1\n" +
		"-----END PGP SIGNATURE-----\n" +
		"\n" +
		"message body\n"
	o := picogit.NewObject(picogit.TypeTag, []byte(body))

	tag, err := picogit.ParseTag(o)
	require.NoError(t, err)
	assert.Equal(t, "signed", tag.Name)
	assert.Equal(t, "message body\n", tag.Message)
}
