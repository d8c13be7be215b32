// Package source abstracts where SQL definition files come from. A Source
// lists the .sql files under each application's SP directory and reads them
// back by key; implementations cover the local filesystem, an in-memory map,
// an S3 bucket, and a git repository.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Driver enumerates supported source backends.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
	DriverGit        Driver = "git"
)

var (
	// ErrUnknownDriver is returned by the factory for unsupported drivers.
	ErrUnknownDriver = errors.New("source: unknown driver")
	// ErrNotExist is returned when a key resolves to no file.
	ErrNotExist = errors.New("source: file does not exist")
)

// File describes one discovered SQL definition file.
type File struct {
	// Key identifies the file within its source, e.g. "billing/charges.sql".
	Key     string
	Size    int64
	ModTime time.Time
}

// Source lists and reads SQL definition files.
type Source interface {
	Driver() Driver
	List(ctx context.Context) ([]File, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// AppDir names one application directory scanned for SQL definitions.
type AppDir struct {
	Name string
	Path string
}

// sanitizeKey forbids traversal and absolute keys.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("source: empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("source: invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("source: invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func isSQL(name string) bool {
	return strings.HasSuffix(name, ".sql")
}
