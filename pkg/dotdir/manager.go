// Package dotdir manages the .engram/ and ~/.engram directories.
//
// The dot directory holds the config file, the default store and vector
// index files, and the chat session state. Resolution prefers an explicit
// override, then a local ./.engram/ directory, then ~/.engram.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the engram directory.
	dirName = ".engram"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .engram/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.engram/ dir
//  3. Home ~/.engram/ dir
//
// Returns an empty string when none of the above resolve; callers that
// need the directory to exist should use Create.
func (m *Manager) Target(overrideDir string) (string, error) {
	switch {
	case overrideDir != "":
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating engram directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		return filepath.Abs(filepath.Join(cwd, dirName))

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}

		dir := filepath.Join(home, dirName)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return "", nil
		}

		return filepath.Abs(dir)
	}
}

// Create resolves the target directory like Target but creates ~/.engram
// when nothing resolves. Used by init so every other command can rely on
// Target's read-only resolution.
func (m *Manager) Create(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil || target != "" {
		return target, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating engram directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDirExists checks whether a .engram/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
