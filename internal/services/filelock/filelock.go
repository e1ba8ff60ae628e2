// Package filelock serializes writers of the same output file across goroutines
// and processes, and replaces file contents atomically.
package filelock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFilePrefix    = "jobfolder-"
	lockFileSuffix    = ".lock"
	lockNameHexLength = 16
	temporaryPattern  = ".tmp-*"
	writtenFileMode   = 0o644
	directoryMode     = 0o755
)

// FileLock wraps a flock file lock for coordinating access to one target file.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a lock backed by the lock file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Lock acquires an exclusive lock, blocking until it is available.
func (fileLock *FileLock) Lock() error {
	if err := fileLock.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fileLock.path, err)
	}
	return nil
}

// Unlock releases the lock.
func (fileLock *FileLock) Unlock() error {
	if err := fileLock.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fileLock.path, err)
	}
	return nil
}

// LockPathFor returns the lock file guarding targetPath. Lock files live in the
// OS temporary directory so that nothing is added next to the target, which may
// sit inside an artifact folder.
func LockPathFor(targetPath string) string {
	absolutePath, absoluteError := filepath.Abs(targetPath)
	if absoluteError != nil {
		absolutePath = filepath.Clean(targetPath)
	}
	digest := sha256.Sum256([]byte(absolutePath))
	lockName := lockFilePrefix + hex.EncodeToString(digest[:])[:lockNameHexLength] + lockFileSuffix
	return filepath.Join(os.TempDir(), lockName)
}

// AtomicWrite writes data to path through a temporary sibling file and a rename,
// so readers never observe a partially written file. An existing file is replaced.
func AtomicWrite(path string, data []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, directoryMode); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", directory, err)
	}

	temporaryFile, err := os.CreateTemp(directory, temporaryPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	temporaryPath := temporaryFile.Name()

	defer func() {
		if temporaryFile != nil {
			temporaryFile.Close()
			os.Remove(temporaryPath)
		}
	}()

	if _, err := temporaryFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := temporaryFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := temporaryFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(temporaryPath, writtenFileMode); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	temporaryFile = nil
	return nil
}

// LockAndWrite holds the lock for path while atomically replacing its contents.
func LockAndWrite(path string, data []byte) error {
	lock := NewFileLock(LockPathFor(path))
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	return AtomicWrite(path, data)
}
