package pack

import (
	"github.com/pkg/errors"
)

// ApplyDelta reconstructs a target object's bytes from base and a
// REF_DELTA instruction stream: a source-length varint, a
// target-length varint, then a sequence of copy (from base) and insert
// (literal) instructions.
func ApplyDelta(base, delta []byte) ([]byte, error) {
	sourceLen, used, err := readDeltaLength(delta)
	if err != nil {
		return nil, errors.Wrap(err, "reading delta source length")
	}
	if sourceLen != uint64(len(base)) {
		return nil, errors.Errorf("delta source length %d does not match base length %d", sourceLen, len(base))
	}

	targetLen, n, err := readDeltaLength(delta[used:])
	if err != nil {
		return nil, errors.Wrap(err, "reading delta target length")
	}
	used += n

	out := make([]byte, 0, targetLen)
	for used < len(delta) {
		op := delta[used]
		used++

		if op&0x80 != 0 {
			// Copy instruction: the low 4 bits of op select which of the
			// next 4 bytes supply the copy offset (little-endian), and
			// the next 3 bits select which of the following 3 bytes
			// supply the copy length.
			var offset, length uint64
			for bit := 0; bit < 4; bit++ {
				if op&(1<<bit) != 0 {
					if used >= len(delta) {
						return nil, errors.New("truncated copy offset")
					}
					offset |= uint64(delta[used]) << (8 * bit)
					used++
				}
			}
			for bit := 0; bit < 3; bit++ {
				if op&(1<<(4+bit)) != 0 {
					if used >= len(delta) {
						return nil, errors.New("truncated copy length")
					}
					length |= uint64(delta[used]) << (8 * bit)
					used++
				}
			}
			if length == 0 {
				length = 0x10000
			}
			if offset+length > uint64(len(base)) {
				return nil, errors.Errorf("copy instruction [%d,%d) runs past base of length %d", offset, offset+length, len(base))
			}
			out = append(out, base[offset:offset+length]...)
		} else if op != 0 {
			// Insert instruction: op itself is the literal byte count.
			length := int(op)
			if used+length > len(delta) {
				return nil, errors.New("truncated insert instruction")
			}
			out = append(out, delta[used:used+length]...)
			used += length
		} else {
			return nil, errors.New("delta instruction byte 0x00 is reserved")
		}
	}

	if uint64(len(out)) != targetLen {
		return nil, errors.Errorf("reconstructed object is %d bytes, delta declared %d", len(out), targetLen)
	}
	return out, nil
}

// readDeltaLength decodes one of the two length varints found at the
// start of a delta stream: 7 bits per byte, little-endian, MSB-set
// meaning "more bytes follow".
func readDeltaLength(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errors.New("truncated length varint")
	}
	var length uint64
	shift := uint(0)
	used := 0
	for {
		if used >= len(b) {
			return 0, 0, errors.New("truncated length varint")
		}
		c := b[used]
		used++
		length |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return length, used, nil
		}
		shift += 7
	}
}
