package pack

import (
	"bytes"
	"compress/zlib"
	"io"

	picogit "github.com/agbell/pico-git"
	"github.com/pkg/errors"
)

// recordType is the 3-bit type tag found in a pack record's header.
type recordType uint8

const (
	recordCommit   recordType = 1
	recordTree     recordType = 2
	recordBlob     recordType = 3
	recordTag      recordType = 4
	recordOfsDelta recordType = 6
	recordRefDelta recordType = 7
)

var recordTypeToObjectType = map[recordType]picogit.Type{
	recordCommit: picogit.TypeCommit,
	recordTree:   picogit.TypeTree,
	recordBlob:   picogit.TypeBlob,
	recordTag:    picogit.TypeTag,
}

const packHeaderSize = 12 // "PACK" + uint32 version + uint32 object count

// pendingDelta is a REF_DELTA record whose base wasn't resolvable yet
// at the time it was parsed.
type pendingDelta struct {
	base  picogit.Oid
	delta []byte
}

// Result summarizes what a pack application produced.
type Result struct {
	// Objects lists every object that was written: the commit/tree/
	// blob/tag records in pack order, followed by the resolved deltas
	// in the order they were resolved.
	Objects []picogit.Oid
	// Warnings carries one message per OFS_DELTA record encountered:
	// parsing continues, but the object it would have produced is
	// missing from the store.
	Warnings []string
}

// Apply parses a pack byte stream (as returned by Fetch, trailing
// checksum included) and writes every object it can resolve into store.
// REF_DELTA records are resolved against their base once that base is
// available, which may require more than one pass when deltas are
// stacked; OFS_DELTA records are drained and skipped, each contributing
// one entry to Result.Warnings rather than aborting the whole pack.
func Apply(store *picogit.ObjectStore, data []byte) (*Result, error) {
	if len(data) < packHeaderSize+20 {
		return nil, errors.New("packfile shorter than its fixed header and checksum")
	}
	if !bytes.Equal(data[0:4], []byte("PACK")) {
		return nil, errors.New("missing PACK magic")
	}
	version := readUint32(data[4:8])
	if version != 2 && version != 3 {
		return nil, errors.Errorf("unsupported pack version %d", version)
	}
	count := readUint32(data[8:12])

	body := data[packHeaderSize : len(data)-20]
	offset := 0
	result := &Result{}
	var pending []pendingDelta

	for i := uint32(0); i < count; i++ {
		if offset >= len(body) {
			return nil, errors.Errorf("packfile ends after %d of %d records", i, count)
		}
		typ, size, read, err := readRecordHeader(body[offset:])
		if err != nil {
			return nil, errors.Wrapf(err, "record %d header", i)
		}
		offset += read

		switch typ {
		case recordCommit, recordTree, recordBlob, recordTag:
			payload, consumed, err := inflate(body[offset:], int(size))
			if err != nil {
				return nil, errors.Wrapf(err, "record %d payload", i)
			}
			offset += consumed
			oid, err := store.WriteObject(picogit.NewObject(recordTypeToObjectType[typ], payload))
			if err != nil {
				return nil, errors.Wrapf(err, "record %d", i)
			}
			result.Objects = append(result.Objects, oid)

		case recordRefDelta:
			if offset+picogit.OidSize > len(body) {
				return nil, errors.Errorf("record %d: truncated ref-delta base", i)
			}
			base, err := picogit.NewOidFromHex(body[offset : offset+picogit.OidSize])
			if err != nil {
				return nil, errors.Wrapf(err, "record %d: invalid ref-delta base", i)
			}
			offset += picogit.OidSize
			deltaBytes, consumed, err := inflate(body[offset:], int(size))
			if err != nil {
				return nil, errors.Wrapf(err, "record %d delta payload", i)
			}
			offset += consumed
			pending = append(pending, pendingDelta{base: base, delta: deltaBytes})

		case recordOfsDelta:
			skip, err := skipOfsDeltaOffset(body[offset:])
			if err != nil {
				return nil, errors.Wrapf(err, "record %d: ofs-delta offset", i)
			}
			offset += skip
			_, consumed, err := inflate(body[offset:], int(size))
			if err != nil {
				return nil, errors.Wrapf(err, "record %d: ofs-delta payload", i)
			}
			offset += consumed
			result.Warnings = append(result.Warnings, "skipped unsupported OFS_DELTA record")

		default:
			return nil, errors.Errorf("record %d: unknown object type %d", i, typ)
		}
	}

	resolved, err := resolveDeltas(store, pending, result.Objects)
	if err != nil {
		return nil, err
	}
	result.Objects = append(result.Objects, resolved...)
	return result, nil
}

// resolveDeltas repeatedly sweeps pending, applying any delta whose
// base is now present in store, until a full pass makes no progress.
func resolveDeltas(store *picogit.ObjectStore, pending []pendingDelta, written []picogit.Oid) ([]picogit.Oid, error) {
	var resolved []picogit.Oid
	for len(pending) > 0 {
		var remaining []pendingDelta
		progressed := false
		for _, p := range pending {
			has, err := store.HasObject(p.base)
			if err != nil {
				return nil, err
			}
			if !has {
				remaining = append(remaining, p)
				continue
			}
			base, err := store.ReadObject(p.base)
			if err != nil {
				return nil, err
			}
			target, err := ApplyDelta(base.Bytes(), p.delta)
			if err != nil {
				return nil, errors.Wrapf(err, "applying delta against base %s", p.base)
			}
			oid, err := store.WriteObject(picogit.NewObject(base.Type(), target))
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, oid)
			progressed = true
		}
		if !progressed {
			return nil, errors.Errorf("%d delta record(s) never found their base object", len(remaining))
		}
		pending = remaining
	}
	return resolved, nil
}

// readRecordHeader decodes a pack record's variable-length type+size
// header: the first byte's low 4 bits seed the size, and its top bit
// (bit 7, after the 3-bit type in bits 6..4) signals a continuation
// byte contributing 7 more bits, shifted by 4, 11, 18, ...
func readRecordHeader(b []byte) (recordType, uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, 0, errors.New("truncated record header")
	}
	first := b[0]
	typ := recordType((first >> 4) & 0x7)
	size := uint64(first & 0xf)
	shift := uint(4)
	used := 1

	for first&0x80 != 0 {
		if used >= len(b) || shift > 64 {
			return 0, 0, 0, errors.New("truncated or overlong record header")
		}
		first = b[used]
		size |= uint64(first&0x7f) << shift
		shift += 7
		used++
	}
	return typ, size, used, nil
}

// skipOfsDeltaOffset consumes git's base-128 negative-offset encoding
// without resolving it to a value: OFS_DELTA is never applied, only
// drained so parsing can continue past it.
func skipOfsDeltaOffset(b []byte) (int, error) {
	used := 0
	for {
		if used >= len(b) {
			return 0, errors.New("truncated ofs-delta offset")
		}
		c := b[used]
		used++
		if c&0x80 == 0 {
			return used, nil
		}
	}
}

// inflate decompresses a zlib stream that starts at b and is expected
// to produce exactly wantSize bytes, returning the payload and the
// number of compressed bytes consumed from b.
func inflate(b []byte, wantSize int) ([]byte, int, error) {
	br := bytes.NewReader(b)
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, 0, errors.Wrap(err, "opening zlib stream")
	}
	defer zr.Close() //nolint:errcheck

	payload := make([]byte, wantSize)
	if _, err := io.ReadFull(zr, payload); err != nil {
		return nil, 0, errors.Wrap(err, "inflating record")
	}
	// Confirm the stream actually ends here (no more real bytes) so
	// consumed reflects exactly this record's compressed region.
	var probe [1]byte
	if n, err := zr.Read(probe[:]); n > 0 || (err != nil && err != io.EOF) {
		return nil, 0, errors.New("inflated payload longer than its declared size")
	}

	consumed := len(b) - br.Len()
	return payload, consumed, nil
}

func readUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
