package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Type identifies a file store backend
type Type string

const (
	TypeFS  Type = "fs"
	TypeS3  Type = "s3"
	TypeGCS Type = "gcs"
)

// ErrNotFound is returned when a key has no file behind it
var ErrNotFound = errors.New("file not found")

// Store is a read-only view of the report file store. Keys are
// slash-separated paths relative to the store root.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Type() Type
	Close() error
}

// Join builds a store key from a folder and a file name
func Join(folder, name string) string {
	if folder == "" {
		return name
	}
	return strings.TrimSuffix(folder, "/") + "/" + name
}

// CleanKey normalizes a key and rejects keys escaping the store root
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid file key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid file key %q", key)
	}
	return cleaned, nil
}
