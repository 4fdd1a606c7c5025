// Approved-directory subcommands: list, add, remove.

package cli

import (
	"fmt"
	"path/filepath"

	"github.com/richinex/merlin/dirs"
)

// newDirManager opens the persisted approved-directory list.
func newDirManager(opts Options) (*dirs.Manager, error) {
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return nil, err
	}
	configDir, err := configDirPath()
	if err != nil {
		return nil, err
	}
	return dirs.NewManager(configDir, logger)
}

// ListDirs prints the approved directories.
func ListDirs(opts Options) error {
	m, err := newDirManager(opts)
	if err != nil {
		return err
	}
	approved := m.GetAllDirectories()
	fmt.Printf("Approved directories (%d):\n", len(approved))
	for _, dir := range approved {
		fmt.Printf("  %s\n", dir)
	}
	return nil
}

// AddDir approves a directory for command targeting.
func AddDir(dir string, opts Options) error {
	m, err := newDirManager(opts)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid directory %q: %w", dir, err)
	}
	if err := m.Add(abs); err != nil {
		return err
	}
	fmt.Printf("Approved %s\n", abs)
	return nil
}

// RemoveDir withdraws approval for a directory.
func RemoveDir(dir string, opts Options) error {
	m, err := newDirManager(opts)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid directory %q: %w", dir, err)
	}
	if err := m.Remove(abs); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", abs)
	return nil
}
