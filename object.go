package picogit

import (
	"fmt"
	"strconv"
)

// Type represents the kind of a git object, including the two delta
// kinds that only ever appear transiently inside a pack stream and are
// never persisted as such.
type Type int8

// The object kinds understood by the codec.
const (
	TypeCommit Type = 1
	TypeTree   Type = 2
	TypeBlob   Type = 3
	TypeTag    Type = 4
	// 5 is reserved, matching git's own pack format.
	TypeDeltaOFS Type = 6
	TypeDeltaRef Type = 7
)

// String returns the textual name used in an object's header.
func (t Type) String() string {
	switch t {
	case TypeCommit:
		return "commit"
	case TypeTree:
		return "tree"
	case TypeBlob:
		return "blob"
	case TypeTag:
		return "tag"
	case TypeDeltaOFS:
		return "ofs-delta"
	case TypeDeltaRef:
		return "ref-delta"
	default:
		return fmt.Sprintf("unknown(%d)", int8(t))
	}
}

// IsValid reports whether t is one of the known kinds.
func (t Type) IsValid() bool {
	switch t {
	case TypeCommit, TypeTree, TypeBlob, TypeTag, TypeDeltaOFS, TypeDeltaRef:
		return true
	default:
		return false
	}
}

// NewTypeFromString parses the textual kind found in an object header.
// Only the four persistable kinds are accepted; the delta kinds never
// appear in a loose object header.
func NewTypeFromString(s string) (Type, error) {
	switch s {
	case "commit":
		return TypeCommit, nil
	case "tree":
		return TypeTree, nil
	case "blob":
		return TypeBlob, nil
	case "tag":
		return TypeTag, nil
	default:
		return 0, ErrObjectUnknown
	}
}

// Header is the parsed first line of an object's decompressed stream:
// "<kind> <size>\0".
type Header struct {
	Type Type
	Size int
}

// Object is an immutable, fully-materialized git object: a kind plus its
// payload. Large blobs should be read/written through the streaming
// paths in objectstore.go instead of being loaded into an Object.
type Object struct {
	typ     Type
	content []byte
}

// NewObject creates an in-memory object of the given kind. Its Oid is
// computed lazily.
func NewObject(typ Type, content []byte) *Object {
	return &Object{typ: typ, content: content}
}

// Type returns the object's kind.
func (o *Object) Type() Type {
	return o.typ
}

// Size returns the length of the object's payload.
func (o *Object) Size() int {
	return len(o.content)
}

// Bytes returns the object's payload.
func (o *Object) Bytes() []byte {
	return o.content
}

// header renders the canonical "<kind> <size>\0" prefix.
func (o *Object) header() []byte {
	return []byte(o.typ.String() + " " + strconv.Itoa(o.Size()) + "\x00")
}

// ID computes the object's Oid: the sha1 of its canonical bytes
// ("<kind> <size>\0<payload>"). Two objects with identical kind and
// payload collide by construction.
func (o *Object) ID() Oid {
	h := o.header()
	buf := make([]byte, 0, len(h)+len(o.content))
	buf = append(buf, h...)
	buf = append(buf, o.content...)
	return NewOidFromContent(buf)
}
