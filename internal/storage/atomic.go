package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// atomicWriter serializes concurrent writers per file and guarantees readers
// never observe a partial write: data goes to a temp file first and is moved
// into place with an atomic rename.
type atomicWriter struct {
	locks   map[string]*sync.RWMutex
	locksMu sync.Mutex
}

func newAtomicWriter() *atomicWriter {
	return &atomicWriter{locks: make(map[string]*sync.RWMutex)}
}

func (w *atomicWriter) fileLock(filename string) *sync.RWMutex {
	w.locksMu.Lock()
	defer w.locksMu.Unlock()

	if lock, ok := w.locks[filename]; ok {
		return lock
	}
	lock := &sync.RWMutex{}
	w.locks[filename] = lock
	return lock
}

// WriteFile writes data to filename atomically.
func (w *atomicWriter) WriteFile(filename string, data []byte, perm os.FileMode) error {
	lock := w.fileLock(filename)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := filename + ".tmp." + tempSuffix()
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ReadFile reads filename under the per-file read lock.
func (w *atomicWriter) ReadFile(filename string) ([]byte, error) {
	lock := w.fileLock(filename)
	lock.RLock()
	defer lock.RUnlock()

	return os.ReadFile(filename)
}

func tempSuffix() string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	return hex.EncodeToString(hash[:4])
}
