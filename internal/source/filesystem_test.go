package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeAppFiles(t *testing.T, appPath, spDir string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(appPath, spDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestFilesystemListFiltersAndSorts(t *testing.T) {
	bank := t.TempDir()
	crm := t.TempDir()
	writeAppFiles(t, bank, "sp", map[string]string{
		"zeta.sql":   "SELECT 1;",
		"alpha.sql":  "SELECT 2;",
		"readme.txt": "not sql",
	})
	writeAppFiles(t, crm, "sp", map[string]string{"contacts.sql": "SELECT 3;"})

	fsSrc, err := NewFilesystem([]AppDir{{Name: "bank", Path: bank}, {Name: "crm", Path: crm}}, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	files, err := fsSrc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = f.Key
	}
	want := []string{"bank/alpha.sql", "bank/zeta.sql", "crm/contacts.sql"}
	if len(keys) != 3 || keys[0] != want[0] || keys[1] != want[1] || keys[2] != want[2] {
		t.Fatalf("got %v, want %v", keys, want)
	}
}

func TestFilesystemListSkipsMissingSPDirectory(t *testing.T) {
	withSP := t.TempDir()
	withoutSP := t.TempDir()
	writeAppFiles(t, withSP, "sp", map[string]string{"a.sql": "SELECT 1;"})

	fsSrc, err := NewFilesystem([]AppDir{{Name: "bare", Path: withoutSP}, {Name: "bank", Path: withSP}}, "sp")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	files, err := fsSrc.List(context.Background())
	if err != nil {
		t.Fatalf("list should skip missing directories: %v", err)
	}
	if len(files) != 1 || files[0].Key != "bank/a.sql" {
		t.Fatalf("unexpected files: %+v", files)
	}
}

func TestFilesystemCustomSPDirectory(t *testing.T) {
	app := t.TempDir()
	writeAppFiles(t, app, "procedures", map[string]string{"a.sql": "SELECT 1;"})

	fsSrc, err := NewFilesystem([]AppDir{{Name: "bank", Path: app}}, "procedures")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	files, err := fsSrc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %+v", files)
	}
}

func TestFilesystemRead(t *testing.T) {
	app := t.TempDir()
	writeAppFiles(t, app, "sp", map[string]string{"defs.sql": "CREATE OR REPLACE VIEW v AS SELECT 1;"})

	fsSrc, err := NewFilesystem([]AppDir{{Name: "bank", Path: app}}, "sp")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	data, err := fsSrc.Read(context.Background(), "bank/defs.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "CREATE OR REPLACE VIEW v AS SELECT 1;" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestFilesystemReadMissing(t *testing.T) {
	app := t.TempDir()
	writeAppFiles(t, app, "sp", map[string]string{"defs.sql": "SELECT 1;"})

	fsSrc, err := NewFilesystem([]AppDir{{Name: "bank", Path: app}}, "sp")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"bank/missing.sql", "other/defs.sql", "defs.sql"} {
		if _, err := fsSrc.Read(context.Background(), key); !errors.Is(err, ErrNotExist) {
			t.Fatalf("read %s: expected ErrNotExist, got %v", key, err)
		}
	}
}

func TestFilesystemReadRejectsTraversal(t *testing.T) {
	app := t.TempDir()
	writeAppFiles(t, app, "sp", map[string]string{"defs.sql": "SELECT 1;"})

	fsSrc, err := NewFilesystem([]AppDir{{Name: "bank", Path: app}}, "sp")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"bank/../secrets.sql", "/etc/passwd", ""} {
		if _, err := fsSrc.Read(context.Background(), key); err == nil {
			t.Fatalf("read %q: expected error", key)
		}
	}
}

func TestNewFilesystemValidation(t *testing.T) {
	if _, err := NewFilesystem(nil, "sp"); err == nil {
		t.Fatalf("expected error for no apps")
	}
	if _, err := NewFilesystem([]AppDir{{Name: "", Path: "/tmp"}}, "sp"); err == nil {
		t.Fatalf("expected error for unnamed app")
	}
}
