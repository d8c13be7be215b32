package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Open selects a Source implementation using environment variables.
//
//	PROCSTORE_SOURCE_DRIVER: fs|memory|s3|git (default fs)
//	PROCSTORE_SOURCE_FS_ROOT: application directory when driver=fs (default .)
//	PROCSTORE_SP_DIR: per-app SQL subdirectory (default sp)
//	(S3 and git specific variables documented in s3.go and git.go)
func Open(ctx context.Context) (Source, error) {
	driver := os.Getenv("PROCSTORE_SOURCE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("PROCSTORE_SOURCE_FS_ROOT")
		if root == "" {
			root = "."
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("source: resolve root %s: %w", root, err)
		}
		app := AppDir{Name: filepath.Base(abs), Path: abs}
		return NewFilesystem([]AppDir{app}, os.Getenv("PROCSTORE_SP_DIR"))
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverGit:
		return OpenGitFromEnv()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
