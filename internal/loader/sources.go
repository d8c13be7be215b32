package loader

import (
	"context"
	"fmt"

	"procstore/internal/config"
	"procstore/internal/source"
)

// BuildSources assembles the configured SQL sources: application directories
// first, then the S3 and git blocks when present.
func BuildSources(ctx context.Context, cfg config.Config) ([]source.Source, error) {
	var sources []source.Source
	if len(cfg.Apps) > 0 {
		apps := make([]source.AppDir, len(cfg.Apps))
		for i, app := range cfg.Apps {
			apps[i] = source.AppDir{Name: app.Name, Path: app.Path}
		}
		fsSrc, err := source.NewFilesystem(apps, cfg.SPDir)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fsSrc)
	}
	if cfg.S3 != nil {
		s3Src, err := source.NewS3(ctx, source.S3Config{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, s3Src)
	}
	if cfg.Git != nil {
		gitSrc, err := source.NewGit(source.GitConfig{
			URL:  cfg.Git.URL,
			Path: cfg.Git.Path,
			Rev:  cfg.Git.Rev,
			Dir:  cfg.Git.Dir,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, gitSrc)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no SQL sources configured")
	}
	return sources, nil
}
