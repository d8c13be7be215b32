package source

import (
	"context"
	"testing"
)

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestOpenS3FromEnvRequiresBucket(t *testing.T) {
	t.Setenv("PROCSTORE_SOURCE_S3_BUCKET", "")
	if _, err := OpenS3FromEnv(context.Background()); err == nil {
		t.Fatalf("expected error for missing bucket env")
	}
}

func TestNormalizePrefix(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"sp":        "sp/",
		"/sp/":      "sp/",
		"apps/bank": "apps/bank/",
	}
	for in, want := range cases {
		if got := normalizePrefix(in); got != want {
			t.Fatalf("normalizePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
