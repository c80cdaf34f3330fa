package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get for keys that hold no object
var ErrNotFound = errors.New("object not found")

// Storage is a flat key/value blob store for generated documents.
type Storage interface {
	// Put stores the object at key, replacing any existing one.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Get opens the object at key. Returns ErrNotFound when it does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object. Returns nil if it doesn't exist.
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a backend. An empty S3Bucket means local disk.
type Config struct {
	LocalPath string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

// New builds the backend described by cfg
func New(ctx context.Context, cfg Config) (Storage, error) {
	if cfg.S3Bucket != "" {
		return NewS3Storage(ctx, cfg)
	}
	return NewLocalStorage(cfg.LocalPath)
}
