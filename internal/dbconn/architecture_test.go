package dbconn

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyDbconnImportsSQLDrivers ensures database driver registration stays
// confined to this package. Everything else goes through *dbconn.DB or the
// database/sql interfaces.
func TestOnlyDbconnImportsSQLDrivers(t *testing.T) {
	driverPrefixes := []string{
		"github.com/jackc/pgx",
		"github.com/duckdb/duckdb-go",
		"modernc.org/sqlite",
	}
	allowed := "procstore/internal/dbconn"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "procstore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, allowed) {
			continue
		}
		for importPath := range pkg.Imports {
			for _, prefix := range driverPrefixes {
				if importPath == prefix || strings.HasPrefix(importPath, prefix+"/") {
					seen[pkg.PkgPath+": "+importPath] = struct{}{}
				}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden driver import: %s", v)
		}
		t.Fatalf("found %d forbidden driver imports", len(violations))
	}
}
