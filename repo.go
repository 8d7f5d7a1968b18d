package picogit

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/agbell/pico-git/internal/gitpath"
	"github.com/spf13/afero"
)

// ErrRepositoryExists is returned by InitRepository when the target
// directory already holds a HEAD file.
var ErrRepositoryExists = errors.New("repository already exists")

// ErrRepositoryNotExist is returned by OpenRepository when the target
// directory has no HEAD file.
var ErrRepositoryNotExist = errors.New("repository does not exist")

// defaultBranch is the branch HEAD points to in a freshly initialized
// repository, before any commit exists.
const defaultBranch = "master"

// Repository ties together the on-disk .git layout (HEAD, refs,
// objects) and an ObjectStore over it.
type Repository struct {
	fs      afero.Fs
	workDir string
	gitDir  string
	Store   *ObjectStore
}

// GitDir returns the repository's .git directory.
func (r *Repository) GitDir() string { return r.gitDir }

// WorkDir returns the repository's working-tree root.
func (r *Repository) WorkDir() string { return r.workDir }

// InitRepository creates a new repository rooted at workDir: the
// .git directory with its objects/refs/heads/refs/tags subdirectories,
// and a HEAD pointing at the unborn default branch.
func InitRepository(fs afero.Fs, workDir string) (*Repository, error) {
	gitDir := filepath.Join(workDir, gitpath.DotGitPath)
	headPath := filepath.Join(gitDir, gitpath.HEADPath)

	if exists, err := afero.Exists(fs, headPath); err != nil {
		return nil, wrap(KindIo, "checking for existing repository", err)
	} else if exists {
		return nil, ErrRepositoryExists
	}

	for _, dir := range []string{
		filepath.Join(gitDir, gitpath.ObjectsPath),
		filepath.Join(gitDir, gitpath.RefsHeadsPath),
		filepath.Join(gitDir, gitpath.RefsTagsPath),
	} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, wrap(KindIo, "creating "+dir, err)
		}
	}

	head := "ref: " + gitpath.RefsHeadsPath + "/" + defaultBranch + "\n"
	if err := afero.WriteFile(fs, headPath, []byte(head), 0o644); err != nil {
		return nil, wrap(KindIo, "writing HEAD", err)
	}

	return &Repository{
		fs:      fs,
		workDir: workDir,
		gitDir:  gitDir,
		Store:   NewObjectStore(fs, gitDir),
	}, nil
}

// OpenRepository opens an existing repository rooted at workDir.
func OpenRepository(fs afero.Fs, workDir string) (*Repository, error) {
	gitDir := filepath.Join(workDir, gitpath.DotGitPath)
	headPath := filepath.Join(gitDir, gitpath.HEADPath)

	if exists, err := afero.Exists(fs, headPath); err != nil {
		return nil, wrap(KindIo, "checking for repository", err)
	} else if !exists {
		return nil, ErrRepositoryNotExist
	}

	return &Repository{
		fs:      fs,
		workDir: workDir,
		gitDir:  gitDir,
		Store:   NewObjectStore(fs, gitDir),
	}, nil
}

// HeadBranchRef returns the ref HEAD currently points to (e.g.
// "refs/heads/master"), following a single "ref: " indirection. It
// does not resolve that ref to an Oid.
func (r *Repository) HeadBranchRef() (string, error) {
	data, err := afero.ReadFile(r.fs, filepath.Join(r.gitDir, gitpath.HEADPath))
	if err != nil {
		return "", wrap(KindIo, "reading HEAD", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "ref: ") {
		return "", wrap(KindCorrupt, "HEAD is detached, which isn't supported", ErrObjectInvalid)
	}
	return strings.TrimPrefix(line, "ref: "), nil
}

// SetBranchTarget writes oid as the target of ref (e.g.
// "refs/heads/master"), creating it if it doesn't yet exist.
func (r *Repository) SetBranchTarget(ref string, oid Oid) error {
	path := filepath.Join(r.gitDir, filepath.FromSlash(ref))
	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return wrap(KindIo, "creating ref directory for "+ref, err)
	}
	if err := afero.WriteFile(r.fs, path, []byte(oid.String()+"\n"), 0o644); err != nil {
		return wrap(KindIo, "writing ref "+ref, err)
	}
	return nil
}

// BranchTarget reads the Oid currently stored at ref.
func (r *Repository) BranchTarget(ref string) (Oid, error) {
	path := filepath.Join(r.gitDir, filepath.FromSlash(ref))
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return NullOid, wrap(KindNotFound, "reading ref "+ref, ErrObjectNotFound)
	}
	id, err := NewOidFromStr(strings.TrimSpace(string(data)))
	if err != nil {
		return NullOid, wrap(KindCorrupt, "ref "+ref+" does not contain a valid oid", err)
	}
	return id, nil
}
