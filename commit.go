package picogit

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/agbell/pico-git/internal/readutil"
	"golang.org/x/xerrors"
)

// Signature represents the author or committer of a commit: a name, an
// email, and a point in time expressed in that person's own timezone.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// String renders a Signature using git's wire format:
// "Name <email> seconds tz", e.g. "A U Thor <author@example.com> 1135641779 +0000".
func (s Signature) String() string {
	_, offset := s.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	tz := sign + twoDigit(offset/3600) + twoDigit((offset%3600)/60)
	return s.Name + " <" + s.Email + "> " + strconv.FormatInt(s.When.Unix(), 10) + " " + tz
}

func twoDigit(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// parseSignature parses a line of the form
// "Name <email> 1566115917 -0700", as found after the "author" or
// "committer" key in a commit object.
func parseSignature(b []byte) (Signature, error) {
	var sig Signature

	data := readutil.ReadTo(b, '<')
	if data == nil {
		return sig, xerrors.Errorf("missing name: %w", ErrCommitInvalid)
	}
	sig.Name = strings.TrimSpace(string(data))
	offset := len(data) + 1
	if offset >= len(b) {
		return sig, xerrors.Errorf("signature stops after the name: %w", ErrCommitInvalid)
	}

	data = readutil.ReadTo(b[offset:], '>')
	if data == nil {
		return sig, xerrors.Errorf("missing email: %w", ErrCommitInvalid)
	}
	sig.Email = string(data)
	offset += len(data) + 2 // skip "> "
	if offset >= len(b) {
		return sig, xerrors.Errorf("signature stops after the email: %w", ErrCommitInvalid)
	}

	timestamp := readutil.ReadTo(b[offset:], ' ')
	if timestamp == nil {
		return sig, xerrors.Errorf("missing timestamp: %w", ErrCommitInvalid)
	}
	offset += len(timestamp) + 1
	if offset >= len(b) {
		return sig, xerrors.Errorf("signature stops after the timestamp: %w", ErrCommitInvalid)
	}

	t, err := strconv.ParseInt(string(timestamp), 10, 64)
	if err != nil {
		return sig, xerrors.Errorf("invalid timestamp %q: %w", timestamp, ErrCommitInvalid)
	}
	sig.When = time.Unix(t, 0)

	tz, err := time.Parse("-0700", string(b[offset:]))
	if err != nil {
		return sig, xerrors.Errorf("invalid timezone %q: %w", b[offset:], ErrCommitInvalid)
	}
	sig.When = sig.When.In(tz.Location())
	return sig, nil
}

// Commit represents a parsed commit object. GPG signatures are neither
// produced nor verified: CommitTree never writes one, and ParseCommit
// skips over one if present without validating it.
type Commit struct {
	ID        Oid
	TreeID    Oid
	ParentIDs []Oid
	Author    Signature
	Committer Signature
	Message   string
}

// ToObject renders a Commit into its canonical textual body:
// tree/parent/author/committer lines, a blank line, then the message.
func (c *Commit) ToObject() *Object {
	var buf bytes.Buffer
	buf.WriteString("tree " + c.TreeID.String() + "\n")
	for _, p := range c.ParentIDs {
		buf.WriteString("parent " + p.String() + "\n")
	}
	buf.WriteString("author " + c.Author.String() + "\n")
	buf.WriteString("committer " + c.Committer.String() + "\n")
	buf.WriteString("\n")
	buf.WriteString(c.Message)
	return NewObject(TypeCommit, buf.Bytes())
}

// ParseCommit decodes a commit Object's textual body. An unrecognized
// "gpgsig ..." block is skipped over (up to and including its
// "-----END PGP SIGNATURE-----" trailer) rather than rejected, matching
// real git's tolerance for objects it didn't itself produce.
func ParseCommit(o *Object) (*Commit, error) {
	if o.Type() != TypeCommit {
		return nil, xerrors.Errorf("type %s is not a commit: %w", o.Type(), ErrObjectInvalid)
	}

	c := &Commit{ID: o.ID()}
	data := o.Bytes()
	offset := 0
	for {
		line := readutil.ReadTo(data[offset:], '\n')
		if line == nil {
			return nil, xerrors.Errorf("commit body has no blank line before its message: %w", ErrCommitInvalid)
		}
		offset += len(line) + 1

		if len(line) == 0 {
			c.Message = string(data[offset:])
			break
		}

		kv := bytes.SplitN(line, []byte{' '}, 2)
		if len(kv) != 2 {
			return nil, xerrors.Errorf("malformed commit header line %q: %w", line, ErrCommitInvalid)
		}
		switch string(kv[0]) {
		case "tree":
			id, err := NewOidFromStr(string(kv[1]))
			if err != nil {
				return nil, xerrors.Errorf("invalid tree id %q: %w", kv[1], ErrCommitInvalid)
			}
			c.TreeID = id
		case "parent":
			id, err := NewOidFromStr(string(kv[1]))
			if err != nil {
				return nil, xerrors.Errorf("invalid parent id %q: %w", kv[1], ErrCommitInvalid)
			}
			c.ParentIDs = append(c.ParentIDs, id)
		case "author":
			sig, err := parseSignature(kv[1])
			if err != nil {
				return nil, xerrors.Errorf("invalid author signature: %w", err)
			}
			c.Author = sig
		case "committer":
			sig, err := parseSignature(kv[1])
			if err != nil {
				return nil, xerrors.Errorf("invalid committer signature: %w", err)
			}
			c.Committer = sig
		case "gpgsig":
			end := []byte("-----END PGP SIGNATURE-----\n")
			i := bytes.Index(data[offset:], end)
			if i < 0 {
				return nil, xerrors.Errorf("unterminated gpgsig block: %w", ErrCommitInvalid)
			}
			offset += i + len(end)
		}
	}

	if c.TreeID.IsZero() {
		return nil, xerrors.Errorf("commit has no tree: %w", ErrCommitInvalid)
	}
	return c, nil
}

// CommitTree creates a new commit object pointing at treeID, with
// parents parentIDs (zero, one, or many), authored and committed by who
// at the time who.When carries, and publishes it through store.
func CommitTree(store *ObjectStore, treeID Oid, parentIDs []Oid, who Signature, message string) (Oid, error) {
	if ok, err := store.HasObject(treeID); err != nil {
		return NullOid, err
	} else if !ok {
		return NullOid, wrap(KindPrecondition, "commit-tree: tree "+treeID.String()+" does not exist", ErrObjectNotFound)
	}
	for _, p := range parentIDs {
		if ok, err := store.HasObject(p); err != nil {
			return NullOid, err
		} else if !ok {
			return NullOid, wrap(KindPrecondition, "commit-tree: parent "+p.String()+" does not exist", ErrObjectNotFound)
		}
	}

	c := &Commit{
		TreeID:    treeID,
		ParentIDs: parentIDs,
		Author:    who,
		Committer: who,
		Message:   message,
	}
	return store.WriteObject(c.ToObject())
}
