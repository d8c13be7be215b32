package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var _ Source = (*S3)(nil)

// S3 reads SQL definitions from an S3-compatible bucket (AWS S3 or MinIO).
// Keys map to object keys under an optional prefix.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config holds explicit construction parameters (mostly for tests). For
// prod we rely primarily on environment variables.
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string // optional; if set enables custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Environment variables:
//   PROCSTORE_SOURCE_DRIVER=s3
//   PROCSTORE_SOURCE_S3_BUCKET=<bucket> (required)
//   PROCSTORE_SOURCE_S3_PREFIX=<prefix> (optional)
//   PROCSTORE_SOURCE_S3_REGION=<region> (default us-east-1)
//   PROCSTORE_SOURCE_S3_ENDPOINT=<url> (optional, for MinIO)
//   PROCSTORE_SOURCE_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// NewS3 creates an S3 source from S3Config.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("source: s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, prefix: normalizePrefix(cfg.Prefix)}, nil
}

// OpenS3FromEnv constructs an S3 source from process environment.
func OpenS3FromEnv(ctx context.Context) (*S3, error) {
	bucket := os.Getenv("PROCSTORE_SOURCE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("source: PROCSTORE_SOURCE_S3_BUCKET required for s3 driver")
	}
	cfg := S3Config{
		Bucket:    bucket,
		Prefix:    os.Getenv("PROCSTORE_SOURCE_S3_PREFIX"),
		Region:    os.Getenv("PROCSTORE_SOURCE_S3_REGION"),
		Endpoint:  os.Getenv("PROCSTORE_SOURCE_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("PROCSTORE_SOURCE_S3_PATH_STYLE"), "true"),
	}
	return NewS3(ctx, cfg)
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return prefix
}

func (s *S3) Driver() Driver { return DriverS3 }

// List returns every .sql object under the configured prefix.
func (s *S3) List(ctx context.Context) ([]File, error) {
	var files []File
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &s.prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("source: list s3 objects: %w", err)
		}
		for _, obj := range out.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if !isSQL(key) {
				continue
			}
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			files = append(files, File{Key: key, Size: size, ModTime: aws.ToTime(obj.LastModified)})
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	return files, nil
}

// Read returns the contents of the object registered under key.
func (s *S3) Read(ctx context.Context, key string) ([]byte, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	objKey := s.prefix + clean
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &objKey})
	if err != nil {
		return nil, fmt.Errorf("source: get s3 object %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("source: read s3 object %s: %w", key, err)
	}
	return data, nil
}
