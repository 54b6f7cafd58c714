// Package models manages acoustic model artifacts: the model file and its
// token table, downloaded from an S3-compatible bucket into a local cache.
//
// An engine needs both artifacts on disk before it can start; [Manager.Ensure]
// is the one call that guarantees that, downloading whatever the cache is
// missing. Artifacts are immutable per name, so a cached file is never
// re-validated against the bucket.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// DefaultModel is the model used when no name is configured.
const DefaultModel = "zipa-small-crctc-ns-700k"

// ErrNotFound is returned when the bucket has no artifact for a model name.
var ErrNotFound = errors.New("models: model not found")

// Paths locates a model's artifacts on the local filesystem.
type Paths struct {
	// Model is the path to <name>.onnx.
	Model string
	// Tokens is the path to <name>.tokens.txt, the decoder's vocabulary.
	Tokens string
}

// Client abstracts the S3 operations the manager uses.
// The [s3.Client] type satisfies this interface.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configures a Manager.
type Options struct {
	// Bucket is the S3 bucket holding model artifacts. Required.
	Bucket string

	// Prefix is prepended to all object keys; "" for none.
	Prefix string

	// CacheDir is the local artifact cache. Empty means
	// <user cache dir>/phonecho/models.
	CacheDir string

	// Logger may be nil for slog.Default().
	Logger *slog.Logger
}

// Manager downloads and caches model artifacts.
type Manager struct {
	client   Client
	bucket   string
	prefix   string
	cacheDir string
	logger   *slog.Logger
}

// New creates a Manager. The client should be pre-configured with
// credentials, region and endpoint.
func New(client Client, opts Options) (*Manager, error) {
	if opts.Bucket == "" {
		return nil, errors.New("models: Options.Bucket is required")
	}
	dir := opts.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("models: resolve cache dir: %w", err)
		}
		dir = filepath.Join(base, "phonecho", "models")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:   client,
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
		cacheDir: dir,
		logger:   logger,
	}, nil
}

// CacheDir returns the local artifact cache directory.
func (m *Manager) CacheDir() string { return m.cacheDir }

// Paths returns where a model's artifacts live in the cache. The files
// may not exist yet; use Ensure to materialize them.
func (m *Manager) Paths(name string) Paths {
	return Paths{
		Model:  filepath.Join(m.cacheDir, name+".onnx"),
		Tokens: filepath.Join(m.cacheDir, name+".tokens.txt"),
	}
}

// Ensure returns the local paths for a model, downloading any artifact
// the cache is missing. Ensure is cheap when everything is cached.
func (m *Manager) Ensure(ctx context.Context, name string) (Paths, error) {
	if name == "" {
		name = DefaultModel
	}
	p := m.Paths(name)
	for _, f := range []string{p.Model, p.Tokens} {
		if _, err := os.Stat(f); err == nil {
			continue
		}
		if err := m.fetch(ctx, name, f); err != nil {
			return Paths{}, err
		}
	}
	return p, nil
}

// Pull downloads a model's artifacts unconditionally, replacing any
// cached copies.
func (m *Manager) Pull(ctx context.Context, name string) (Paths, error) {
	if name == "" {
		name = DefaultModel
	}
	p := m.Paths(name)
	for _, f := range []string{p.Model, p.Tokens} {
		if err := m.fetch(ctx, name, f); err != nil {
			return Paths{}, err
		}
	}
	return p, nil
}

// fetch downloads one artifact to dst. The download goes to a temp file
// first so a cached artifact is never observed half-written.
func (m *Manager) fetch(ctx context.Context, name, dst string) error {
	key := filepath.Base(dst)
	if m.prefix != "" {
		key = m.prefix + "/" + key
	}

	m.logger.Info("models: downloading artifact",
		slog.String("model", name),
		slog.String("bucket", m.bucket),
		slog.String("key", key))

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("models: %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("models: fetch %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("models: create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), key+".tmp*")
	if err != nil {
		return fmt.Errorf("models: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("models: download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("models: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("models: install %s: %w", dst, err)
	}
	return nil
}

// isS3NotFound reports whether err indicates the object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
