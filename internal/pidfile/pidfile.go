// Package pidfile records the daemon's pid for the outloud CLI, which
// supervises the process externally (checks liveness, calls /shutdown).
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Write records the current process id at path, creating parent
// directories as needed.
func Write(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty pid file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Read returns the pid recorded at path.
func Read(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return pid, nil
}

// Remove deletes the pid file. Missing files are not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
