// Package config loads procstore settings from an HCL file with an
// environment-variable fallback covering every setting. File values win
// over environment values.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// DefaultSPDir is the per-application subdirectory scanned for SQL
// definition files.
const DefaultSPDir = "sp"

// App names one application directory to scan.
type App struct {
	Name string
	Path string
}

// Database selects the target database.
type Database struct {
	Driver          string
	DSN             string
	SplitStatements bool
}

// S3Source configures an S3 bucket holding SQL definitions.
type S3Source struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// GitSource configures a git repository holding SQL definitions.
type GitSource struct {
	URL  string
	Path string
	Rev  string
	Dir  string
}

// Server configures the HTTP surface.
type Server struct {
	Listen      string
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// ViewFilter declares one filter field accepted by a view over HTTP.
type ViewFilter struct {
	Name      string
	Type      string // string|int|decimal|time (default string)
	MapTo     string
	Default   *string
	Min       *float64
	Max       *float64
	MaxLength int
	Layouts   []string
}

// View declares the HTTP filter surface of one registered view.
type View struct {
	Name    string
	OrderBy string
	OrGroup []string
	Filters []ViewFilter
}

// Config is the resolved configuration.
type Config struct {
	SPDir    string
	Apps     []App
	Database Database
	S3       *S3Source
	Git      *GitSource
	Server   Server
	Views    []View
}

type fileConfig struct {
	SPDir    string        `hcl:"sp_dir,optional"`
	Apps     []appBlock    `hcl:"app,block"`
	Database *dbBlock      `hcl:"database,block"`
	Sources  []sourceBlock `hcl:"source,block"`
	Server   *serverBlock  `hcl:"server,block"`
	Views    []viewBlock   `hcl:"view,block"`
}

type viewBlock struct {
	Name    string        `hcl:"name,label"`
	OrderBy string        `hcl:"order_by,optional"`
	OrGroup []string      `hcl:"or_group,optional"`
	Filters []filterBlock `hcl:"filter,block"`
}

type filterBlock struct {
	Name      string   `hcl:"name,label"`
	Type      string   `hcl:"type,optional"`
	MapTo     string   `hcl:"map_to,optional"`
	Default   *string  `hcl:"default,optional"`
	Min       *float64 `hcl:"min,optional"`
	Max       *float64 `hcl:"max,optional"`
	MaxLength int      `hcl:"max_length,optional"`
	Layouts   []string `hcl:"layouts,optional"`
}

type appBlock struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

type dbBlock struct {
	Driver          string `hcl:"driver,optional"`
	DSN             string `hcl:"dsn,optional"`
	SplitStatements bool   `hcl:"split_statements,optional"`
}

type sourceBlock struct {
	Driver    string `hcl:"driver,label"`
	Bucket    string `hcl:"bucket,optional"`
	Prefix    string `hcl:"prefix,optional"`
	Region    string `hcl:"region,optional"`
	Endpoint  string `hcl:"endpoint,optional"`
	PathStyle bool   `hcl:"path_style,optional"`
	URL       string `hcl:"url,optional"`
	Path      string `hcl:"path,optional"`
	Rev       string `hcl:"rev,optional"`
	Dir       string `hcl:"dir,optional"`
}

type serverBlock struct {
	Listen      string `hcl:"listen,optional"`
	JWTSecret   string `hcl:"jwt_secret,optional"`
	JWTIssuer   string `hcl:"jwt_issuer,optional"`
	JWTAudience string `hcl:"jwt_audience,optional"`
}

// envFunc exposes env("NAME") inside HCL expressions so secrets can stay
// out of the config file.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "name", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{"env": envFunc},
	}
}

// FromEnv resolves every setting from process environment.
//
//	PROCSTORE_SP_DIR: per-app SQL subdirectory (default sp)
//	PROCSTORE_APPS: comma-separated name=path entries
//	PROCSTORE_DB_DRIVER / PROCSTORE_DB_DSN / PROCSTORE_DB_SPLIT
//	PROCSTORE_LISTEN / PROCSTORE_JWT_SECRET / PROCSTORE_JWT_ISSUER /
//	PROCSTORE_JWT_AUDIENCE
func FromEnv() (Config, error) {
	cfg := Config{
		SPDir: os.Getenv("PROCSTORE_SP_DIR"),
		Database: Database{
			Driver:          os.Getenv("PROCSTORE_DB_DRIVER"),
			DSN:             os.Getenv("PROCSTORE_DB_DSN"),
			SplitStatements: strings.EqualFold(os.Getenv("PROCSTORE_DB_SPLIT"), "true"),
		},
		Server: Server{
			Listen:      os.Getenv("PROCSTORE_LISTEN"),
			JWTSecret:   os.Getenv("PROCSTORE_JWT_SECRET"),
			JWTIssuer:   os.Getenv("PROCSTORE_JWT_ISSUER"),
			JWTAudience: os.Getenv("PROCSTORE_JWT_AUDIENCE"),
		},
	}
	if cfg.SPDir == "" {
		cfg.SPDir = DefaultSPDir
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if apps := os.Getenv("PROCSTORE_APPS"); apps != "" {
		for _, entry := range strings.Split(apps, ",") {
			name, path, ok := strings.Cut(strings.TrimSpace(entry), "=")
			if !ok {
				return Config{}, fmt.Errorf("config: PROCSTORE_APPS entry %q must be name=path", entry)
			}
			cfg.Apps = append(cfg.Apps, App{Name: name, Path: path})
		}
	}
	return cfg, nil
}

// Load resolves configuration from env, then overlays the HCL file at path
// when path is non-empty.
func Load(path string) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, diags)
	}
	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &fc); diags.HasErrors() {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, diags)
	}

	if fc.SPDir != "" {
		cfg.SPDir = fc.SPDir
	}
	for _, app := range fc.Apps {
		cfg.Apps = append(cfg.Apps, App{Name: app.Name, Path: app.Path})
	}
	if fc.Database != nil {
		if fc.Database.Driver != "" {
			cfg.Database.Driver = fc.Database.Driver
		}
		if fc.Database.DSN != "" {
			cfg.Database.DSN = fc.Database.DSN
		}
		if fc.Database.SplitStatements {
			cfg.Database.SplitStatements = true
		}
	}
	for _, src := range fc.Sources {
		switch src.Driver {
		case "s3":
			cfg.S3 = &S3Source{
				Bucket:    src.Bucket,
				Prefix:    src.Prefix,
				Region:    src.Region,
				Endpoint:  src.Endpoint,
				PathStyle: src.PathStyle,
			}
		case "git":
			cfg.Git = &GitSource{URL: src.URL, Path: src.Path, Rev: src.Rev, Dir: src.Dir}
		default:
			return Config{}, fmt.Errorf("config: unknown source driver %q in %s", src.Driver, path)
		}
	}
	for _, vb := range fc.Views {
		view := View{Name: vb.Name, OrderBy: vb.OrderBy, OrGroup: vb.OrGroup}
		for _, f := range vb.Filters {
			typ := f.Type
			if typ == "" {
				typ = "string"
			}
			switch typ {
			case "string", "int", "decimal", "time":
			default:
				return Config{}, fmt.Errorf("config: view %s filter %s has unknown type %q", vb.Name, f.Name, f.Type)
			}
			view.Filters = append(view.Filters, ViewFilter{
				Name:      f.Name,
				Type:      typ,
				MapTo:     f.MapTo,
				Default:   f.Default,
				Min:       f.Min,
				Max:       f.Max,
				MaxLength: f.MaxLength,
				Layouts:   f.Layouts,
			})
		}
		cfg.Views = append(cfg.Views, view)
	}
	if fc.Server != nil {
		if fc.Server.Listen != "" {
			cfg.Server.Listen = fc.Server.Listen
		}
		if fc.Server.JWTSecret != "" {
			cfg.Server.JWTSecret = fc.Server.JWTSecret
		}
		if fc.Server.JWTIssuer != "" {
			cfg.Server.JWTIssuer = fc.Server.JWTIssuer
		}
		if fc.Server.JWTAudience != "" {
			cfg.Server.JWTAudience = fc.Server.JWTAudience
		}
	}
	return cfg, nil
}
