// Package pathutil provides a pflag.Value for the "-C" working
// directory flag shared by every subcommand.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// ErrIsNotDirectory is returned when a "-C" argument resolves to a file
// instead of a directory.
var ErrIsNotDirectory = errors.New("path is not a directory")

// DirValue is a pflag.Value holding a directory path: relative values
// accumulate onto whatever was set before, absolute values replace it,
// matching how git's own "-C" stacks across repeated flags.
type DirValue struct {
	defaultValue string
	userValue    string
	valueSet     bool
}

var _ pflag.Value = (*DirValue)(nil)

// String returns the flag's current value.
func (v *DirValue) String() string {
	if v.valueSet {
		return v.userValue
	}
	return v.defaultValue
}

// Set validates and records a new "-C" value.
func (v *DirValue) Set(value string) error {
	if value == "" {
		return nil
	}
	if !filepath.IsAbs(value) {
		value = filepath.Join(v.String(), value)
	}
	value, err := filepath.Abs(value)
	if err != nil {
		return fmt.Errorf("could not find absolute path: %w", err)
	}

	info, err := os.Stat(value)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not check path %s: %w", value, err)
	}
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", value, os.ErrNotExist)
	}
	if !info.IsDir() {
		return fmt.Errorf("invalid path %s: %w", value, ErrIsNotDirectory)
	}

	v.valueSet = true
	v.userValue = value
	return nil
}

// Type identifies the flag's value kind to pflag/cobra's usage text.
func (v *DirValue) Type() string {
	return "path"
}
