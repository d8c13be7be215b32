package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"procstore/internal/ctxlog"
)

// Compile-time contract assertion.
var _ Source = (*Filesystem)(nil)

// Filesystem scans each application directory's SP subdirectory for .sql
// files. Keys take the form "<app>/<filename>". Unreadable directories are
// skipped with a logged warning rather than aborting discovery.
type Filesystem struct {
	apps  []AppDir
	spDir string
}

// NewFilesystem constructs a filesystem source over the given application
// directories. spDir is the per-app subdirectory holding SQL definitions
// (default "sp").
func NewFilesystem(apps []AppDir, spDir string) (*Filesystem, error) {
	if len(apps) == 0 {
		return nil, fmt.Errorf("source: no application directories configured")
	}
	if spDir == "" {
		spDir = "sp"
	}
	for _, app := range apps {
		if app.Name == "" || app.Path == "" {
			return nil, fmt.Errorf("source: application entry needs both name and path")
		}
	}
	return &Filesystem{apps: apps, spDir: spDir}, nil
}

func (f *Filesystem) Driver() Driver { return DriverFilesystem }

// List returns every .sql file under each app's SP directory, sorted by key.
func (f *Filesystem) List(ctx context.Context) ([]File, error) {
	logger := ctxlog.FromContext(ctx)
	var files []File
	for _, app := range f.apps {
		dir := filepath.Join(app.Path, f.spDir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warn("sp directory not readable, skipping", "app", app.Name, "dir", dir, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !isSQL(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				logger.Warn("sp file not statable, skipping", "app", app.Name, "file", entry.Name(), "error", err)
				continue
			}
			files = append(files, File{
				Key:     app.Name + "/" + entry.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Read returns the contents of the file registered under key.
func (f *Filesystem) Read(_ context.Context, key string) ([]byte, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	app, rest, ok := strings.Cut(clean, "/")
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	for _, a := range f.apps {
		if a.Name != app {
			continue
		}
		data, err := os.ReadFile(filepath.Join(a.Path, f.spDir, filepath.FromSlash(rest)))
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
		}
		if err != nil {
			return nil, fmt.Errorf("source: read %s: %w", key, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
}
