// Package store centralizes the filesystem writes toolchat makes under its home directory: the bootstrap config file and conversation transcripts.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pathLocksMu sync.Mutex
	pathLocks   = map[string]*sync.Mutex{}
)

// ReadFile reads a file and returns it as a string.
func ReadFile(path string) (string, error) {
	clean, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(clean)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// WriteFileIfMissing atomically creates path with data. It reports false
// without touching the file when path already exists.
func WriteFileIfMissing(path string, data []byte, perm os.FileMode) (bool, error) {
	clean, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	lock := lockForPath(clean)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(clean); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %q: %w", clean, err)
	}

	dir := filepath.Dir(clean)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(clean)+".tmp-*")
	if err != nil {
		return false, fmt.Errorf("create temp file for %q: %w", clean, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write temp file for %q: %w", clean, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return false, fmt.Errorf("chmod temp file for %q: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close temp file for %q: %w", clean, err)
	}
	if err := os.Rename(tmpPath, clean); err != nil {
		return false, fmt.Errorf("create file %q: %w", clean, err)
	}
	return true, nil
}

// AppendFile appends bytes to a file, creating it and its directory if missing.
// Appends to the same path are serialized within the process.
func AppendFile(path string, data []byte) error {
	clean, err := cleanPath(path)
	if err != nil {
		return err
	}
	lock := lockForPath(clean)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(clean)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	f, err := os.OpenFile(clean, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open file %q for append: %w", clean, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append file %q: %w", clean, err)
	}
	return nil
}

func lockForPath(path string) *sync.Mutex {
	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()

	lock, ok := pathLocks[path]
	if !ok {
		lock = &sync.Mutex{}
		pathLocks[path] = lock
	}
	return lock
}

func cleanPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is required")
	}
	return filepath.Clean(trimmed), nil
}
