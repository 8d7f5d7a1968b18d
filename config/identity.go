// Package config resolves the author/committer identity used when
// writing a commit, the one piece of repository configuration this
// implementation reads.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/agbell/pico-git/internal/gitpath"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

// defaultName and defaultEmail are used when no other source of
// identity is available. Real git refuses to commit in that case; this
// implementation instead falls back to a fixed, clearly-fake identity
// so commit-tree remains usable without any configuration at all.
const (
	defaultName  = "pico-git"
	defaultEmail = "pico-git@localhost"
)

// Identity is the name/email pair recorded as a commit's author and
// committer.
type Identity struct {
	Name  string
	Email string
}

// ResolveIdentity looks up the identity to use for a new commit,
// checking, in order: $GIT_AUTHOR_NAME/$GIT_AUTHOR_EMAIL (or
// $GIT_COMMITTER_* when forCommitter is true), the repository's
// .git/config [user] section, $HOME/.gitconfig's [user] section, and
// finally the hardcoded default. Each source is used only if it
// supplies both a name and an email; a source that sets only one falls
// through to the next.
func ResolveIdentity(fs afero.Fs, gitDir string, forCommitter bool) Identity {
	namesVar, emailVar := "GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL"
	if forCommitter {
		namesVar, emailVar = "GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL"
	}
	if id, ok := fromEnv(namesVar, emailVar); ok {
		return id
	}

	if id, ok := fromIniFile(fs, filepath.Join(gitDir, gitpath.ConfigPath)); ok {
		return id
	}

	if home, err := os.UserHomeDir(); err == nil {
		if id, ok := fromIniFile(fs, filepath.Join(home, ".gitconfig")); ok {
			return id
		}
	}

	return Identity{Name: defaultName, Email: defaultEmail}
}

func fromEnv(nameVar, emailVar string) (Identity, bool) {
	name, email := os.Getenv(nameVar), os.Getenv(emailVar)
	if name == "" || email == "" {
		return Identity{}, false
	}
	return Identity{Name: name, Email: email}, true
}

func fromIniFile(fs afero.Fs, path string) (Identity, bool) {
	f, err := fs.Open(path)
	if err != nil {
		return Identity{}, false
	}
	defer f.Close() //nolint:errcheck

	cfg, err := ini.Load(f)
	if err != nil {
		return Identity{}, false
	}

	section := cfg.Section("user")
	name := section.Key("name").String()
	email := section.Key("email").String()
	if name == "" || email == "" {
		return Identity{}, false
	}
	return Identity{Name: name, Email: email}, true
}

// Now returns the current time, in the local timezone, truncated to
// whole seconds: the precision git's signature format records.
func Now() time.Time {
	return time.Now().Truncate(time.Second)
}
