// Command sp-server applies SQL definition files at startup and serves the
// registered procedures and views over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procstore/internal/catalog"
	"procstore/internal/config"
	"procstore/internal/ctxlog"
	"procstore/internal/dbconn"
	"procstore/internal/filterset"
	"procstore/internal/httpapi"
	"procstore/internal/loader"
	"procstore/internal/observability"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sp-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath string
		listen     string
		apply      bool
		split      bool
		verbose    bool
	)
	fs.StringVar(&configPath, "config", "", "path to procstore.hcl")
	fs.StringVar(&listen, "listen", "", "listen address (overrides config)")
	fs.BoolVar(&apply, "apply", true, "apply SQL definitions to the database at startup")
	fs.BoolVar(&split, "split", false, "apply files one statement at a time")
	fs.BoolVar(&verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "sp-server: %v\n", err)
		return 1
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if split {
		cfg.Database.SplitStatements = true
	}

	sources, err := loader.BuildSources(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "sp-server: %v\n", err)
		return 1
	}

	db, err := dbconn.Open(ctx, dbconn.Driver(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(stderr, "sp-server: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	promRec, err := observability.NewPrometheusRecorder(nil)
	if err != nil {
		fmt.Fprintf(stderr, "sp-server: %v\n", err)
		return 1
	}
	recorder := observability.Multi(observability.NewExpvarRecorder("procstore"), promRec)

	registry := catalog.NewRegistry(db,
		catalog.WithPlaceholder(db.Placeholder),
		catalog.WithRecorder(recorder),
	)
	ld := loader.New(db, registry, sources, loader.WithStatementSplitting(cfg.Database.SplitStatements))
	if apply {
		if err := ld.Load(ctx); err != nil {
			fmt.Fprintf(stderr, "sp-server: %v\n", err)
			return 1
		}
	} else {
		if _, err := ld.Discover(ctx); err != nil {
			fmt.Fprintf(stderr, "sp-server: %v\n", err)
			return 1
		}
		if err := ld.Populate(ctx); err != nil {
			fmt.Fprintf(stderr, "sp-server: %v\n", err)
			return 1
		}
	}
	logger.Info("catalog populated", "procedures", registry.Len(), "applied", apply)

	opts := []httpapi.Option{}
	for _, view := range cfg.Views {
		set, err := buildFilterSet(view, db.Placeholder)
		if err != nil {
			fmt.Fprintf(stderr, "sp-server: view %s: %v\n", view.Name, err)
			return 1
		}
		opts = append(opts, httpapi.WithViewFilters(view.Name, set))
	}
	if cfg.Server.JWTSecret != "" {
		opts = append(opts, httpapi.WithAuth(httpapi.NewAuthenticator(httpapi.AuthConfig{
			Secret:   cfg.Server.JWTSecret,
			Issuer:   cfg.Server.JWTIssuer,
			Audience: cfg.Server.JWTAudience,
		})))
	}
	handler := httpapi.New(registry, opts...)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(stderr, "sp-server: %v\n", err)
			return 1
		}
	case <-runCtx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "sp-server: shutdown: %v\n", err)
			return 1
		}
	}
	fmt.Fprintln(stdout, "sp-server stopped")
	return 0
}

// buildFilterSet turns a declared view block into the typed filter set that
// backs its HTTP query parameters.
func buildFilterSet(view config.View, placeholder func(i int) string) (*filterset.FilterSet, error) {
	setOpts := []filterset.SetOption{filterset.Placeholder(placeholder)}
	if view.OrderBy != "" {
		setOpts = append(setOpts, filterset.OrderBy(view.OrderBy))
	}
	if len(view.OrGroup) > 0 {
		setOpts = append(setOpts, filterset.OrGroup(view.OrGroup...))
	}
	set := filterset.New(setOpts...)
	for _, f := range view.Filters {
		var fieldOpts []filterset.FieldOption
		if f.MapTo != "" {
			fieldOpts = append(fieldOpts, filterset.MapTo(f.MapTo))
		}
		if f.Default != nil {
			fieldOpts = append(fieldOpts, filterset.Default(*f.Default))
		}
		if f.MaxLength > 0 {
			fieldOpts = append(fieldOpts, filterset.MaxLength(f.MaxLength))
		}
		if f.Min != nil {
			fieldOpts = append(fieldOpts, filterset.Min(*f.Min))
		}
		if f.Max != nil {
			fieldOpts = append(fieldOpts, filterset.Max(*f.Max))
		}
		if len(f.Layouts) > 0 {
			fieldOpts = append(fieldOpts, filterset.Layouts(f.Layouts...))
		}
		switch f.Type {
		case "", "string":
			set.String(f.Name, fieldOpts...)
		case "int":
			set.Int(f.Name, fieldOpts...)
		case "decimal":
			set.Decimal(f.Name, fieldOpts...)
		case "time":
			set.Time(f.Name, fieldOpts...)
		default:
			return nil, fmt.Errorf("unknown filter type %q for field %s", f.Type, f.Name)
		}
	}
	return set, nil
}
