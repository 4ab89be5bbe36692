package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Backend is the durable blob storage under the store. Writes are
// overwrite-on-conflict upserts; the store layers versioning on top.
type Backend interface {
	Get(ctx context.Context, user, path string) ([]byte, error)
	Put(ctx context.Context, user, path string, data []byte) error
	List(ctx context.Context, user, prefix string) ([]string, error)
}

// FileBackend stores documents on the local filesystem, one file per
// document under basePath/user/path.
type FileBackend struct {
	basePath string
	mu       sync.Mutex
	locks    map[string]*FileLock
}

// NewFileBackend creates a file-backed blob store rooted at basePath.
func NewFileBackend(basePath string) *FileBackend {
	return &FileBackend{
		basePath: basePath,
		locks:    make(map[string]*FileLock),
	}
}

func (b *FileBackend) filePath(user, path string) string {
	return filepath.Join(b.basePath, user, filepath.FromSlash(path))
}

// Get reads a document's raw bytes.
func (b *FileBackend) Get(ctx context.Context, user, path string) ([]byte, error) {
	data, err := os.ReadFile(b.filePath(user, path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

// Put writes a document's raw bytes with a temp-file-then-rename upsert
// under a per-file lock.
func (b *FileBackend) Put(ctx context.Context, user, path string, data []byte) error {
	filePath := b.filePath(user, path)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := b.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// List returns the paths under a prefix for one user, in sorted order.
func (b *FileBackend) List(ctx context.Context, user, prefix string) ([]string, error) {
	root := filepath.Join(b.basePath, user)

	var paths []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") || strings.HasSuffix(p, ".lock") {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		docPath := filepath.ToSlash(rel)
		if strings.HasPrefix(docPath, prefix) {
			paths = append(paths, docPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

func (b *FileBackend) getLock(filePath string) *FileLock {
	b.mu.Lock()
	defer b.mu.Unlock()

	lock, ok := b.locks[filePath]
	if !ok {
		lock = NewFileLock(filePath)
		b.locks[filePath] = lock
	}
	return lock
}
