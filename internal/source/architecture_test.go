package source

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlySourceImportsBackendSDKs ensures S3 and git client libraries stay
// confined to this package. Everything else depends on the Source interface.
func TestOnlySourceImportsBackendSDKs(t *testing.T) {
	sdkPrefixes := []string{
		"github.com/aws/aws-sdk-go-v2",
		"github.com/go-git/go-git",
		"github.com/go-git/go-billy",
	}
	allowed := "procstore/internal/source"

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
			for _, prefix := range sdkPrefixes {
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
			t.Errorf("forbidden backend SDK import: %s", v)
		}
		t.Fatalf("found %d forbidden backend SDK imports", len(violations))
	}
}
