package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Storage backend types
const (
	TypeFilesystem = "filesystem"
	TypeS3         = "s3"
)

// ErrBlobNotFound is returned when the source blob of a copy does not exist
var ErrBlobNotFound = errors.New("blob not found")

// Config for the blob storage backend
type Config struct {
	Type string // "filesystem" or "s3"

	// Filesystem config
	FilesystemRoot string

	// PublicURL is the base URL blobs are served from. Required for the
	// filesystem backend; optional for S3 where it overrides the bucket URL.
	PublicURL string

	// S3 config
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// Validate checks the settings required by the selected backend
func (c Config) Validate() error {
	switch c.Type {
	case TypeFilesystem:
		if c.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
		if c.PublicURL == "" {
			return fmt.Errorf("public URL is required for filesystem storage")
		}
	case TypeS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 storage")
		}
		if c.S3Region == "" {
			return fmt.Errorf("S3 region is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be filesystem or s3)", c.Type)
	}
	return nil
}

// SavedBlob describes a blob stored under its permanent name
type SavedBlob struct {
	Name string
	URL  string
}

// BlobStore copies uploaded blobs to permanent names and removes blobs
type BlobStore interface {
	// SaveUpload copies sourceBlob to destName and returns its public URL
	SaveUpload(ctx context.Context, sourceBlob, destName string) (*SavedBlob, error)
	// Delete removes a blob; deleting a missing blob is not an error
	Delete(ctx context.Context, name string) error
	// Backend names the implementation for logs and metrics
	Backend() string
}

// New builds the backend selected by cfg.Type
func New(ctx context.Context, cfg Config) (BlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case TypeS3:
		return NewS3Store(ctx, cfg)
	default:
		return NewFileSystemStore(cfg.FilesystemRoot, cfg.PublicURL)
	}
}

// joinURL joins a base URL and a blob name with exactly one slash
func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}

type instrumentedStore struct {
	next       BlobStore
	operations *prometheus.CounterVec
}

// WithMetrics counts operations in a counter labelled operation, backend, status
func WithMetrics(store BlobStore, operations *prometheus.CounterVec) BlobStore {
	if operations == nil {
		return store
	}
	return &instrumentedStore{next: store, operations: operations}
}

func (s *instrumentedStore) SaveUpload(ctx context.Context, sourceBlob, destName string) (*SavedBlob, error) {
	saved, err := s.next.SaveUpload(ctx, sourceBlob, destName)
	s.observe("save_upload", err)
	return saved, err
}

func (s *instrumentedStore) Delete(ctx context.Context, name string) error {
	err := s.next.Delete(ctx, name)
	s.observe("delete", err)
	return err
}

func (s *instrumentedStore) Backend() string {
	return s.next.Backend()
}

func (s *instrumentedStore) observe(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.operations.WithLabelValues(operation, s.next.Backend(), status).Inc()
}
