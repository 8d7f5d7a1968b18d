package pack_test

import (
	"bytes"
	"compress/zlib"
	"testing"

	picogit "github.com/agbell/pico-git"
	"github.com/agbell/pico-git/pack"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *picogit.ObjectStore {
	t.Helper()
	fs := afero.NewMemMapFs()
	return picogit.NewObjectStore(fs, "/repo/.git")
}

// encodeRecordHeader mirrors the MSB-continuation varint pack.Apply
// decodes: low 4 bits of the first byte seed the size, the 3 bits above
// that carry the object type, and any remaining bits overflow into
// 7-bit continuation bytes.
func encodeRecordHeader(typ byte, size uint64) []byte {
	first := byte(size&0xf) | (typ << 4)
	size >>= 4
	if size > 0 {
		first |= 0x80
	}
	out := []byte{first}
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func deflate(t *testing.T, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func packHeader(count uint32) []byte {
	return []byte{
		'P', 'A', 'C', 'K',
		0, 0, 0, 2,
		byte(count >> 24), byte(count >> 16), byte(count >> 8), byte(count),
	}
}

func TestApplyWritesBlobRecord(t *testing.T) {
	store := newTestStore(t)
	content := []byte("hello\n")

	var buf bytes.Buffer
	buf.Write(packHeader(1))
	buf.Write(encodeRecordHeader(3, uint64(len(content)))) // recordBlob = 3
	buf.Write(deflate(t, content))
	buf.Write(make([]byte, 20)) // trailing checksum, unchecked

	result, err := pack.Apply(store, buf.Bytes())
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)
	assert.Empty(t, result.Warnings)

	o, err := store.ReadObject(result.Objects[0])
	require.NoError(t, err)
	assert.Equal(t, content, o.Bytes())
	assert.Equal(t, picogit.TypeBlob, o.Type())
}

func TestApplyResolvesRefDelta(t *testing.T) {
	store := newTestStore(t)
	base := []byte("the quick brown fox")
	baseOid, err := store.WriteObject(picogit.NewObject(picogit.TypeBlob, base))
	require.NoError(t, err)

	delta := []byte{
		0x13, 0x19, // source length 19, target length 25
		0x90, 0x13, // copy offset=0 length=19
		0x06, ' ', 'j', 'u', 'm', 'p', 's', // insert " jumps"
	}

	var buf bytes.Buffer
	buf.Write(packHeader(1))
	buf.Write(encodeRecordHeader(7, uint64(len(delta)))) // recordRefDelta = 7
	buf.Write(baseOid.Bytes())
	buf.Write(deflate(t, delta))
	buf.Write(make([]byte, 20))

	result, err := pack.Apply(store, buf.Bytes())
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)

	o, err := store.ReadObject(result.Objects[0])
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox jumps", string(o.Bytes()))
}

func TestApplyRecordsOfsDeltaWarningAndContinues(t *testing.T) {
	store := newTestStore(t)
	payload := []byte("unused delta payload")

	var buf bytes.Buffer
	buf.Write(packHeader(2))
	buf.Write(encodeRecordHeader(6, uint64(len(payload)))) // recordOfsDelta = 6
	buf.WriteByte(0x05)                                    // single-byte negative offset, terminates immediately
	buf.Write(deflate(t, payload))
	buf.Write(encodeRecordHeader(3, 5)) // a following blob record still gets applied
	buf.Write(deflate(t, []byte("hello")))
	buf.Write(make([]byte, 20))

	result, err := pack.Apply(store, buf.Bytes())
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	require.Len(t, result.Objects, 1)

	o, err := store.ReadObject(result.Objects[0])
	require.NoError(t, err)
	assert.Equal(t, "hello", string(o.Bytes()))
}

func TestApplyRejectsBadMagic(t *testing.T) {
	store := newTestStore(t)
	data := append([]byte("NOPE"), make([]byte, 28)...)
	_, err := pack.Apply(store, data)
	assert.Error(t, err)
}

func TestApplyRejectsUnsupportedVersion(t *testing.T) {
	store := newTestStore(t)
	var buf bytes.Buffer
	buf.Write([]byte{'P', 'A', 'C', 'K', 0, 0, 0, 9, 0, 0, 0, 0})
	buf.Write(make([]byte, 20))
	_, err := pack.Apply(store, buf.Bytes())
	assert.Error(t, err)
}

func TestApplyErrorsWhenDeltaBaseNeverResolves(t *testing.T) {
	store := newTestStore(t)
	delta := []byte{0x00, 0x00}

	var buf bytes.Buffer
	buf.Write(packHeader(1))
	buf.Write(encodeRecordHeader(7, uint64(len(delta))))
	buf.Write(picogit.NullOid.Bytes())
	buf.Write(deflate(t, delta))
	buf.Write(make([]byte, 20))

	_, err := pack.Apply(store, buf.Bytes())
	assert.Error(t, err)
}
