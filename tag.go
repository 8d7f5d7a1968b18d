package picogit

import (
	"bytes"

	"github.com/agbell/pico-git/internal/readutil"
	"golang.org/x/xerrors"
)

// Tag represents a parsed annotated tag object. Only reading is
// supported; nothing in this module creates a tag.
type Tag struct {
	ID      Oid
	Target  Oid
	Type    Type
	Name    string
	Tagger  Signature
	Message string
}

// ParseTag decodes an annotated tag Object's textual body:
//
//	object <sha>
//	type <target type>
//	tag <name>
//	tagger <signature>
//	(a blank line)
//	<message>
//
// A "gpgsig ..." block, if present, is skipped rather than validated.
func ParseTag(o *Object) (*Tag, error) {
	if o.Type() != TypeTag {
		return nil, xerrors.Errorf("type %s is not a tag: %w", o.Type(), ErrObjectInvalid)
	}

	t := &Tag{ID: o.ID()}
	data := o.Bytes()
	offset := 0
	for {
		line := readutil.ReadTo(data[offset:], '\n')
		if line == nil {
			return nil, xerrors.Errorf("tag body has no blank line before its message: %w", ErrTagInvalid)
		}
		offset += len(line) + 1

		if len(line) == 0 {
			t.Message = string(data[offset:])
			break
		}

		kv := bytes.SplitN(line, []byte{' '}, 2)
		if len(kv) != 2 {
			return nil, xerrors.Errorf("malformed tag header line %q: %w", line, ErrTagInvalid)
		}
		switch string(kv[0]) {
		case "object":
			id, err := NewOidFromStr(string(kv[1]))
			if err != nil {
				return nil, xerrors.Errorf("invalid target id %q: %w", kv[1], ErrTagInvalid)
			}
			t.Target = id
		case "type":
			typ, err := NewTypeFromString(string(kv[1]))
			if err != nil {
				return nil, xerrors.Errorf("invalid target type %q: %w", kv[1], ErrTagInvalid)
			}
			t.Type = typ
		case "tag":
			t.Name = string(kv[1])
		case "tagger":
			sig, err := parseSignature(kv[1])
			if err != nil {
				return nil, xerrors.Errorf("invalid tagger signature: %w", err)
			}
			t.Tagger = sig
		case "gpgsig":
			end := []byte("-----END PGP SIGNATURE-----\n")
			i := bytes.Index(data[offset:], end)
			if i < 0 {
				return nil, xerrors.Errorf("unterminated gpgsig block: %w", ErrTagInvalid)
			}
			offset += i + len(end)
		}
	}

	if t.Target.IsZero() {
		return nil, xerrors.Errorf("tag has no target: %w", ErrTagInvalid)
	}
	if !t.Type.IsValid() {
		return nil, xerrors.Errorf("tag has no valid type: %w", ErrTagInvalid)
	}
	return t, nil
}
