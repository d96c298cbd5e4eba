// Package sqlitepath resolves the on-disk location of the engram SQLite
// store for CLI commands.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/engram/pkg/dotdir"
)

// StoreFileName is the default store file created inside a .engram/
// directory.
const StoreFileName = "engram.sqlite"

// ResolveSQLitePath finds an existing engram database. Precedence is the
// explicit override, then the ENGRAM_SQLITE and ENGRAM_DB environment
// variables, then known candidate locations. Local paths are checked before
// XDG and home so a project-scoped store wins, matching the dot directory
// precedence.
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("ENGRAM_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("ENGRAM_DB")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New("could not find an engram database; pass --sqlite or run engram init")
}

// DefaultSQLitePath returns the store path inside the resolved .engram/
// directory, creating the directory when none exists yet. Commands that
// write use this as the fallback so a fresh machine works without init.
func DefaultSQLitePath(configDir string) (string, error) {
	dir, err := dotdir.NewManager().Create(configDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, StoreFileName), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		"engram.sqlite",
		"engram.db",
		filepath.Join(".engram", "engram.sqlite"),
		filepath.Join(".engram", "engram.db"),
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates,
			filepath.Join(xdgHome, "engram", "engram.sqlite"),
			filepath.Join(xdgHome, "engram", "engram.db"),
		)
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".engram", "engram.sqlite"),
			filepath.Join(home, ".engram", "engram.db"),
		)
	}

	return candidates
}
