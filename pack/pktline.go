// Package pack implements the smart-HTTP fetch negotiation and the
// pack/delta wire formats used to turn a remote's response into loose
// objects.
package pack

import (
	"bufio"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

// maxPktLineData is the largest payload a single pkt-line may carry:
// the 4-digit hex length prefix tops out at 0xffff, minus the 4 bytes
// the prefix itself occupies.
const maxPktLineData = 0xffff - 4

// FlushPkt is the sentinel returned by ReadPktLine for a "0000" line.
var FlushPkt = []byte(nil)

// WritePktLine frames data as "<4-hex-len><data>" and writes it to w.
// An empty (but non-nil) data still produces a well-formed zero-length
// line; to send a flush packet use WriteFlush instead.
func WritePktLine(w io.Writer, data []byte) error {
	if len(data) > maxPktLineData {
		return errors.Errorf("pkt-line payload of %d bytes exceeds the %d-byte limit", len(data), maxPktLineData)
	}
	length := len(data) + 4
	lengthHex := []byte{
		hexDigit(length >> 12),
		hexDigit(length >> 8),
		hexDigit(length >> 4),
		hexDigit(length),
	}
	if _, err := w.Write(lengthHex); err != nil {
		return errors.Wrap(err, "writing pkt-line length")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "writing pkt-line payload")
	}
	return nil
}

func hexDigit(n int) byte {
	const digits = "0123456789abcdef"
	return digits[n&0xf]
}

// WriteFlush writes a "0000" flush-pkt to w.
func WriteFlush(w io.Writer) error {
	_, err := w.Write([]byte("0000"))
	return errors.Wrap(err, "writing flush-pkt")
}

// ReadPktLine reads one pkt-line from r. A flush-pkt is reported by
// returning FlushPkt (a nil slice) with a nil error; callers distinguish
// it from a genuine empty line, which git's protocol never produces, by
// checking for nil.
func ReadPktLine(r *bufio.Reader) ([]byte, error) {
	var lengthHex [4]byte
	if _, err := io.ReadFull(r, lengthHex[:]); err != nil {
		return nil, errors.Wrap(err, "reading pkt-line length")
	}
	length, err := decodePktLen(lengthHex[:])
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return FlushPkt, nil
	}
	if length < 4 {
		return nil, errors.Errorf("pkt-line length %d is shorter than its own prefix", length)
	}
	data := make([]byte, length-4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "reading pkt-line payload")
	}
	return data, nil
}

func decodePktLen(lengthHex []byte) (int, error) {
	var buf [2]byte
	if _, err := hex.Decode(buf[:], lengthHex); err != nil {
		return 0, errors.Wrap(err, "decoding pkt-line length")
	}
	return int(buf[0])<<8 | int(buf[1]), nil
}
