// Package source opens the catalog CSV from a local path or an S3-compatible
// object store (AWS S3, MinIO).
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Scheme prefixes an object-store location: s3://bucket/key.
const Scheme = "s3://"

// ErrBadLocation is returned for a malformed s3:// location.
var ErrBadLocation = errors.New("source: bad object location")

// Config locates the CSV.
//
// Edge cases:
//   - Path without the s3:// prefix is a local file; the object-store
//     fields are ignored.
//   - Endpoint is host[:port] without a scheme. Empty means AWS S3.
//   - Empty Region defaults to us-east-1 so no bucket-location lookup is made.
type Config struct {
	Path      string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// IsObject reports whether path names an object-store location.
func IsObject(path string) bool {
	return strings.HasPrefix(path, Scheme)
}

// ParseObject splits s3://bucket/key into bucket and key.
func ParseObject(path string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(path, Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q: missing %s", ErrBadLocation, path, Scheme)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%w: %q: want %sbucket/key", ErrBadLocation, path, Scheme)
	}
	return bucket, key, nil
}

// Open returns a reader over the CSV. The caller closes it.
//
// Errors:
//   - ErrBadLocation (wrapped) for a malformed s3:// path.
//   - The os error for a missing local file.
//   - The object-store error for a missing bucket, key or bad credentials;
//     the object is stat'ed up front so these surface here, not mid-read.
func Open(ctx context.Context, cfg Config) (io.ReadCloser, error) {
	if !IsObject(cfg.Path) {
		f, err := os.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("source: open: %w", err)
		}
		return f, nil
	}

	bucket, key, err := ParseObject(cfg.Path)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("source: object store client: %w", err)
	}

	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("source: get %s: %w", cfg.Path, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("source: stat %s: %w", cfg.Path, err)
	}
	return obj, nil
}
