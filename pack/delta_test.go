package pack_test

import (
	"testing"

	"github.com/agbell/pico-git/pack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDeltaCopyThenInsert(t *testing.T) {
	base := []byte("the quick brown fox") // 19 bytes
	delta := []byte{
		0x13,                               // source length varint: 19
		0x19,                               // target length varint: 25
		0x90, 0x13,                         // copy: offset=0 (omitted), length=19 (one byte)
		0x06, ' ', 'j', 'u', 'm', 'p', 's', // insert: 6 literal bytes
	}

	got, err := pack.ApplyDelta(base, delta)
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox jumps", string(got))
}

func TestApplyDeltaRejectsSourceLengthMismatch(t *testing.T) {
	base := []byte("short")
	delta := []byte{0x13, 0x00} // claims source length 19, base is only 5
	_, err := pack.ApplyDelta(base, delta)
	assert.Error(t, err)
}

func TestApplyDeltaRejectsCopyPastBase(t *testing.T) {
	base := []byte("abc")
	delta := []byte{
		0x03,       // source length: 3
		0x05,       // target length: 5
		0x90, 0x05, // copy: offset=0, length=5 (runs past the 3-byte base)
	}
	_, err := pack.ApplyDelta(base, delta)
	assert.Error(t, err)
}

func TestApplyDeltaAllInsert(t *testing.T) {
	base := []byte{}
	delta := []byte{0x00, 0x05, 0x05, 'h', 'e', 'l', 'l', 'o'}
	got, err := pack.ApplyDelta(base, delta)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}
