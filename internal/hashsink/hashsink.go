// Package hashsink provides a writer that hashes every byte it forwards
// to an inner writer, so a caller never has to read a stream twice (once
// to hash, once to compress) to get both the digest and the persisted
// bytes.
package hashsink

import (
	"crypto/sha1" //nolint:gosec // git's object format is sha1
	"hash"
	"io"
)

// Writer tees writes into an inner io.Writer while feeding a running
// sha1 hash. The inner writer is typically a zlib compressor (when
// persisting an object) or io.Discard (when only a digest is needed).
//
// The digest returned by Sum equals the digest of the full byte stream
// iff every Write to the Writer succeeded completely: a short write is
// surfaced as an error and the hash state must be considered invalid.
type Writer struct {
	inner io.Writer
	h     hash.Hash
}

// New returns a Writer that forwards to inner.
func New(inner io.Writer) *Writer {
	return &Writer{
		inner: inner,
		h:     sha1.New(), //nolint:gosec
	}
}

// Write feeds p to both the hash and the inner writer. If the inner
// write is short or fails, the error is returned and the hash must be
// treated as no longer trustworthy by the caller.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)
	if err != nil {
		return n, err
	}
	// the hash package's Write never fails or short-writes
	w.h.Write(p[:n])
	return n, nil
}

// Sum returns the sha1 digest of everything written so far.
func (w *Writer) Sum() [20]byte {
	var out [20]byte
	copy(out[:], w.h.Sum(nil))
	return out
}
