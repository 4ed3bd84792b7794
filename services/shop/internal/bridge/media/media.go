// Package media stores product images in an external object store.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

type Uploaded struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type Store interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (Uploaded, error)
	Delete(ctx context.Context, publicID string) error
}

type GCSConfig struct {
	Bucket          string
	PublicBaseURL   string
	CredentialsFile string
	Prefix          string
}

type GCS struct {
	client *storage.Client
	cfg    GCSConfig
}

func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("media: GCS_BUCKET required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: storage client: %w", err)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "products"
	}
	return &GCS{client: client, cfg: cfg}, nil
}

func (g *GCS) Upload(ctx context.Context, name, contentType string, r io.Reader) (Uploaded, error) {
	key := ObjectKey(g.cfg.Prefix, name)
	w := g.client.Bucket(g.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return Uploaded{}, fmt.Errorf("media: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Uploaded{}, fmt.Errorf("media: close %s: %w", key, err)
	}
	return Uploaded{PublicID: key, URL: PublicURL(g.cfg.PublicBaseURL, g.cfg.Bucket, key)}, nil
}

// Delete is idempotent: a missing object is not an error.
func (g *GCS) Delete(ctx context.Context, publicID string) error {
	err := g.client.Bucket(g.cfg.Bucket).Object(publicID).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("media: delete %s: %w", publicID, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// ObjectKey keeps the original extension and nothing else from name.
func ObjectKey(prefix, name string) string {
	ext := strings.ToLower(path.Ext(name))
	return path.Join(prefix, uuid.NewString()+ext)
}

func PublicURL(base, bucket, key string) string {
	if base == "" {
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
	}
	return strings.TrimRight(base, "/") + "/" + key
}
