package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FilePersistence stores each record as a JSON file in DataDir.
type FilePersistence struct {
	DataDir string
	mu      sync.Mutex // Protects concurrent writes to the filesystem
}

// NewFilePersistence initializes a file backend, creating dir if needed.
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FilePersistence{DataDir: dir}, nil
}

func (p *FilePersistence) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(p.DataDir, key+".json"), nil
}

// Write stores data under key atomically.
func (p *FilePersistence) Write(ctx context.Context, key string, data []byte) error {
	filePath, err := p.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	// Rename is atomic on the same filesystem: readers see the old file or the new one.
	return os.Rename(tempPath, filePath)
}

// Read returns the stored bytes, or ErrNotFound when the file does not exist.
func (p *FilePersistence) Read(ctx context.Context, key string) ([]byte, error) {
	filePath, err := p.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	content, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return content, err
}

// Delete removes the file for key.
func (p *FilePersistence) Delete(ctx context.Context, key string) error {
	filePath, err := p.path(key)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
