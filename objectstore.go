package picogit

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agbell/pico-git/internal/cache"
	"github.com/agbell/pico-git/internal/errutil"
	"github.com/agbell/pico-git/internal/gitpath"
	"github.com/agbell/pico-git/internal/hashsink"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// objectCacheSize bounds the number of parsed objects kept in memory in
// front of the loose-object store, mirroring backend.Backend's cache.
const objectCacheSize = 256

// ObjectStore reads and writes loose objects under <root>/objects. It is
// the only place in the module that touches the zlib/sha1 wire format
// directly.
type ObjectStore struct {
	fs   afero.Fs
	root string // path to the .git directory
	cache *cache.LRU
}

// NewObjectStore returns an ObjectStore rooted at gitDir (the .git
// directory), using fs as the filesystem boundary.
func NewObjectStore(fs afero.Fs, gitDir string) *ObjectStore {
	return &ObjectStore{
		fs:    fs,
		root:  gitDir,
		cache: cache.NewLRU(objectCacheSize),
	}
}

// HashPath returns the on-disk path of the object identified by hex,
// the first two characters forming the fan-out directory.
func (s *ObjectStore) HashPath(hex string) string {
	return filepath.Join(s.root, gitpath.ObjectsPath, hex[:2], hex[2:])
}

// payloadReader streams an object's payload from its decompressor,
// enforcing that exactly Header.Size bytes are produced: a shorter or
// longer payload is a Corrupt error, never a silent truncation.
type payloadReader struct {
	zr   io.ReadCloser
	f    afero.File
	want int
	read int
	done bool
}

func (p *payloadReader) Read(b []byte) (int, error) {
	if p.read >= p.want {
		if !p.done {
			p.done = true
			var extra [1]byte
			n, err := p.zr.Read(extra[:])
			if n > 0 {
				return 0, wrap(KindCorrupt, "object payload longer than its declared size", ErrObjectInvalid)
			}
			if err != nil && err != io.EOF {
				return 0, err
			}
		}
		return 0, io.EOF
	}

	max := p.want - p.read
	if len(b) > max {
		b = b[:max]
	}
	n, err := p.zr.Read(b)
	p.read += n
	if err == io.EOF && p.read < p.want {
		return n, wrap(KindCorrupt, "object payload shorter than its declared size", io.ErrUnexpectedEOF)
	}
	return n, err
}

// Close releases the decompressor and the underlying file. Both share
// the same lifetime as the payloadReader by design (see DESIGN NOTES
// §9 in SPEC_FULL.md: "an owning value that bundles them").
func (p *payloadReader) Close() (err error) {
	defer errutil.Close(p.f, &err)
	return p.zr.Close()
}

// Open opens the object identified by hex, decompresses it
// incrementally, and returns its parsed Header alongside a reader for
// the remainder of the payload. The caller must Close the returned
// reader.
func (s *ObjectStore) Open(hex string) (Header, io.ReadCloser, error) {
	p := s.HashPath(hex)
	f, err := s.fs.Open(p)
	if err != nil {
		return Header{}, nil, wrap(KindNotFound, "object "+hex, ErrObjectNotFound)
	}

	zr, err := zlib.NewReader(f)
	if err != nil {
		f.Close() //nolint:errcheck // we're already returning an error
		return Header{}, nil, wrap(KindCorrupt, "decompressing object "+hex, err)
	}

	br := bufio.NewReader(zr)
	typLine, err := br.ReadString(' ')
	if err != nil {
		zr.Close() //nolint:errcheck
		f.Close()  //nolint:errcheck
		return Header{}, nil, wrap(KindCorrupt, "reading header of object "+hex, err)
	}
	typ, err := NewTypeFromString(strings.TrimSuffix(typLine, " "))
	if err != nil {
		zr.Close() //nolint:errcheck
		f.Close()  //nolint:errcheck
		return Header{}, nil, wrap(KindCorrupt, "unknown object type in object "+hex, err)
	}

	sizeLine, err := br.ReadString(0)
	if err != nil {
		zr.Close() //nolint:errcheck
		f.Close()  //nolint:errcheck
		return Header{}, nil, wrap(KindCorrupt, "reading size of object "+hex, err)
	}
	sizeStr := strings.TrimSuffix(sizeLine, "\x00")
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 0 {
		zr.Close() //nolint:errcheck
		f.Close()  //nolint:errcheck
		return Header{}, nil, wrap(KindCorrupt, "invalid size in object "+hex, ErrObjectInvalid)
	}

	h := Header{Type: typ, Size: size}
	// br may have buffered bytes past the NULL; wrap it so the payload
	// reader sees the buffered reader first, then the raw zlib stream.
	return h, &payloadReader{zr: readCloserFrom(br, zr), f: f, want: size}, nil
}

// bufReadCloser adapts a *bufio.Reader (which has already consumed some
// bytes from rc) into an io.ReadCloser that still closes the original
// decompressor.
type bufReadCloser struct {
	*bufio.Reader
	rc io.ReadCloser
}

func (b *bufReadCloser) Close() error { return b.rc.Close() }

func readCloserFrom(br *bufio.Reader, rc io.ReadCloser) io.ReadCloser {
	return &bufReadCloser{Reader: br, rc: rc}
}

// FromFile synthesizes a blob Header (and streaming reader) for an
// on-disk file. The declared size is the file's stat size at the moment
// FromFile is called; the returned reader is capped at that size so a
// concurrent truncation or append can't desynchronize a caller hashing
// or persisting the stream.
func (s *ObjectStore) FromFile(path string) (Header, io.ReadCloser, error) {
	fi, err := s.fs.Stat(path)
	if err != nil {
		return Header{}, nil, wrap(KindIo, "stat "+path, err)
	}
	f, err := s.fs.Open(path)
	if err != nil {
		return Header{}, nil, wrap(KindIo, "open "+path, err)
	}
	size := fi.Size()
	return Header{Type: TypeBlob, Size: int(size)}, &cappedFile{f: f, r: io.LimitReader(f, size)}, nil
}

type cappedFile struct {
	f afero.File
	r io.Reader
}

func (c *cappedFile) Read(p []byte) (int, error) { return c.r.Read(p) }
func (c *cappedFile) Close() error                { return c.f.Close() }

// HashOnly streams the canonical header and payload through a
// hash-only sink and returns the resulting Oid without persisting
// anything.
func (s *ObjectStore) HashOnly(typ Type, payload io.Reader, size int64) (Oid, error) {
	w := hashsink.New(io.Discard)
	if err := writeCanonical(w, typ, payload, size); err != nil {
		return NullOid, err
	}
	return Oid(w.Sum()), nil
}

// Write streams the canonical header and payload through a hashing
// zlib compressor into a fresh temporary file, then atomically
// publishes it to its final content-addressed path. A reader either
// sees no file at that path or a fully-written, correctly compressed
// one: a crash between temp-file creation and rename leaves no artifact
// at the final path.
func (s *ObjectStore) Write(typ Type, payload io.Reader, size int64) (oid Oid, err error) {
	objectsDir := filepath.Join(s.root, gitpath.ObjectsPath)
	if err = s.fs.MkdirAll(objectsDir, 0o755); err != nil {
		return NullOid, wrap(KindIo, "creating objects directory", err)
	}

	tmpDir, err := afero.TempDir(s.fs, objectsDir, "tmp-obj-")
	if err != nil {
		return NullOid, wrap(KindIo, "creating temporary write directory", err)
	}
	defer s.fs.RemoveAll(tmpDir) //nolint:errcheck // best-effort cleanup

	tmpPath := filepath.Join(tmpDir, "object")
	tmpFile, err := s.fs.Create(tmpPath)
	if err != nil {
		return NullOid, wrap(KindIo, "creating temporary object file", err)
	}

	zw, err := zlib.NewWriterLevel(tmpFile, zlib.BestSpeed)
	if err != nil {
		tmpFile.Close() //nolint:errcheck
		return NullOid, wrap(KindIo, "creating zlib writer", err)
	}
	hw := hashsink.New(zw)
	if err = writeCanonical(hw, typ, payload, size); err != nil {
		zw.Close()      //nolint:errcheck
		tmpFile.Close() //nolint:errcheck
		return NullOid, err
	}
	if err = zw.Close(); err != nil {
		tmpFile.Close() //nolint:errcheck
		return NullOid, wrap(KindIo, "flushing compressed object", err)
	}
	if err = tmpFile.Close(); err != nil {
		return NullOid, wrap(KindIo, "closing temporary object file", err)
	}

	oid = Oid(hw.Sum())
	finalPath := s.HashPath(oid.String())
	if err = s.fs.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return NullOid, wrap(KindIo, "creating fan-out directory", err)
	}
	if err = s.fs.Rename(tmpPath, finalPath); err != nil {
		// The destination existing is not an error: two writers racing
		// to publish the same content produce the same bytes by
		// construction, so either outcome is acceptable.
		if exists, statErr := afero.Exists(s.fs, finalPath); statErr == nil && exists {
			return oid, nil
		}
		return NullOid, wrap(KindIo, "publishing object "+oid.String(), err)
	}
	return oid, nil
}

// writeCanonical writes "<type> <size>\0<payload>" to w, verifying that
// exactly size bytes were read from payload.
func writeCanonical(w io.Writer, typ Type, payload io.Reader, size int64) error {
	header := typ.String() + " " + strconv.FormatInt(size, 10) + "\x00"
	if _, err := io.WriteString(w, header); err != nil {
		return wrap(KindIo, "writing object header", err)
	}
	n, err := io.Copy(w, payload)
	if err != nil {
		return wrap(KindIo, "writing object payload", err)
	}
	if n != size {
		return wrap(KindCorrupt, "object payload length mismatch", ErrObjectInvalid)
	}
	return nil
}

// WriteObject persists an in-memory Object and returns its Oid. This is
// the entry point used by the tree, commit, and delta-resolution code
// paths, all of which already hold their payload in memory.
func (s *ObjectStore) WriteObject(o *Object) (Oid, error) {
	oid, err := s.Write(o.Type(), bytes.NewReader(o.Bytes()), int64(o.Size()))
	if err != nil {
		return NullOid, xerrors.Errorf("could not write %s object: %w", o.Type(), err)
	}
	return oid, nil
}

// ReadObject fully materializes the object identified by oid. Prefer
// Open for large blobs that should be streamed instead of buffered.
func (s *ObjectStore) ReadObject(oid Oid) (*Object, error) {
	hex := oid.String()
	if cached, ok := s.cache.Get(hex); ok {
		if o, valid := cached.(*Object); valid {
			return o, nil
		}
	}

	h, r, err := s.Open(hex)
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("could not read object %s: %w", hex, err)
	}
	o := NewObject(h.Type, content)
	s.cache.Add(hex, o)
	return o, nil
}

// HasObject reports whether oid is present as a loose object.
func (s *ObjectStore) HasObject(oid Oid) (bool, error) {
	exists, err := afero.Exists(s.fs, s.HashPath(oid.String()))
	if err != nil {
		return false, wrap(KindIo, "checking for object "+oid.String(), err)
	}
	return exists, nil
}
