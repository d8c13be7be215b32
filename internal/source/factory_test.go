package source

import (
	"context"
	"errors"
	"testing"
)

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("PROCSTORE_SOURCE_DRIVER", "")
	t.Setenv("PROCSTORE_SOURCE_FS_ROOT", t.TempDir())
	src, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if src.Driver() != DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", src.Driver())
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	t.Setenv("PROCSTORE_SOURCE_DRIVER", "memory")
	src, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if src.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", src.Driver())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv("PROCSTORE_SOURCE_DRIVER", "ftp")
	if _, err := Open(context.Background()); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}
