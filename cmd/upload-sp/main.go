// Command upload-sp discovers SQL definition files, applies them to the
// configured database, and prints the registered procedure names.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"procstore/internal/catalog"
	"procstore/internal/config"
	"procstore/internal/ctxlog"
	"procstore/internal/dbconn"
	"procstore/internal/loader"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

// appsFlag collects repeated -app values.
type appsFlag []config.App

func (f *appsFlag) String() string {
	parts := make([]string, len(*f))
	for i, app := range *f {
		parts[i] = app.Name + "=" + app.Path
	}
	return strings.Join(parts, ",")
}

func (f *appsFlag) Set(value string) error {
	name, path, ok := strings.Cut(value, "=")
	if !ok {
		path = value
		name = filepath.Base(filepath.Clean(value))
	}
	if name == "" || path == "" {
		return fmt.Errorf("app entry %q must be name=path or a directory path", value)
	}
	*f = append(*f, config.App{Name: name, Path: path})
	return nil
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("upload-sp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath string
		driver     string
		dsn        string
		spDir      string
		split      bool
		dryRun     bool
		verbose    bool
		apps       appsFlag
	)
	fs.StringVar(&configPath, "config", "", "path to procstore.hcl")
	fs.StringVar(&driver, "driver", "", "database driver: postgres|sqlite|duckdb")
	fs.StringVar(&dsn, "dsn", "", "database DSN")
	fs.StringVar(&spDir, "dir", "", "per-app SQL subdirectory")
	fs.BoolVar(&split, "split", false, "apply files one statement at a time")
	fs.BoolVar(&dryRun, "dry-run", false, "discover and parse without touching the database")
	fs.BoolVar(&verbose, "v", false, "verbose logging")
	fs.Var(&apps, "app", "application directory as name=path (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "upload-sp: %v\n", err)
		return 1
	}
	if driver != "" {
		cfg.Database.Driver = driver
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if spDir != "" {
		cfg.SPDir = spDir
	}
	if split {
		cfg.Database.SplitStatements = true
	}
	if len(apps) > 0 {
		cfg.Apps = apps
	}

	sources, err := loader.BuildSources(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "upload-sp: %v\n", err)
		return 1
	}

	if dryRun {
		registry := catalog.NewRegistry(nil)
		ld := loader.New(nil, registry, sources)
		files, err := ld.Discover(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "upload-sp: %v\n", err)
			return 1
		}
		if err := ld.Populate(ctx); err != nil {
			fmt.Fprintf(stderr, "upload-sp: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Discovered %d files\n", len(files))
		fmt.Fprintf(stdout, "Available procedures: %s\n", strings.Join(ld.Names(), ", "))
		return 0
	}

	db, err := dbconn.Open(ctx, dbconn.Driver(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(stderr, "upload-sp: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	registry := catalog.NewRegistry(db, catalog.WithPlaceholder(db.Placeholder))
	ld := loader.New(db, registry, sources, loader.WithStatementSplitting(cfg.Database.SplitStatements))
	if err := ld.Load(ctx); err != nil {
		fmt.Fprintf(stderr, "upload-sp: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Available procedures: %s\n", strings.Join(ld.Names(), ", "))
	return 0
}
