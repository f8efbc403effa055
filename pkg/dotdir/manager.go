// Package dotdir manages the .turntable/ and ~/.turntable directories.
//
// Besides config.toml, the directory holds the session state (the backend
// conversation the CLI resumes on the next "turntable chat") and, by
// default, the local turn database and log file.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".turntable"

	// HomeEnv relocates the user-level directory, for example on machines
	// where $HOME is read-only.
	HomeEnv = "TURNTABLE_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .turntable/ directory to use,
// creating it when missing. Order of precedence:
//  1. Provided override
//  2. Local ./.turntable/ dir
//  3. $TURNTABLE_HOME
//  4. Home ~/.turntable/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.locate(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating turntable directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

func (m *Manager) locate(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, dirName); isDir(local) {
		return local, nil
	}

	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Resolve places a relative file name inside dir. Absolute paths, the empty
// string and SQLite's ":memory:" are returned as given.
func Resolve(dir, name string) string {
	if name == "" || name == ":memory:" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
