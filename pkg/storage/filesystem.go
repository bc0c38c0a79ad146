package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemStore implements BlobStore using the local filesystem
type FileSystemStore struct {
	rootDir   string
	publicURL string
}

// NewFileSystemStore creates a new filesystem-based blob store
func NewFileSystemStore(rootDir, publicURL string) (*FileSystemStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &FileSystemStore{rootDir: rootDir, publicURL: publicURL}, nil
}

// Backend implements BlobStore.Backend
func (s *FileSystemStore) Backend() string {
	return TypeFilesystem
}

// Put writes content under name. Used by the upload endpoint in development.
func (s *FileSystemStore) Put(ctx context.Context, name string, content io.Reader) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return nil
}

// SaveUpload implements BlobStore.SaveUpload
func (s *FileSystemStore) SaveUpload(ctx context.Context, sourceBlob, destName string) (*SavedBlob, error) {
	src, err := s.resolve(sourceBlob)
	if err != nil {
		return nil, err
	}

	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", sourceBlob, ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer in.Close()

	if err := s.Put(ctx, destName, in); err != nil {
		return nil, err
	}

	return &SavedBlob{Name: destName, URL: joinURL(s.publicURL, destName)}, nil
}

// Delete implements BlobStore.Delete
func (s *FileSystemStore) Delete(ctx context.Context, name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// resolve maps a blob name to a path and rejects names escaping the root
func (s *FileSystemStore) resolve(name string) (string, error) {
	clean := filepath.Clean("/" + name)
	path := filepath.Join(s.rootDir, clean)
	if !strings.HasPrefix(path, filepath.Clean(s.rootDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob name: %s", name)
	}
	return path, nil
}
