package snapshot

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// GCS writes snapshots as objects under a bucket prefix.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS connects a storage client to the given bucket.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("snapshot bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// Save uploads html as an object named prefix/key.
func (s *GCS) Save(ctx context.Context, key string, html []byte) error {
	object := key
	if s.prefix != "" {
		object = path.Join(s.prefix, key)
	}

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/html; charset=utf-8"
	if _, err := w.Write(html); err != nil {
		w.Close()
		return fmt.Errorf("write snapshot object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize snapshot object %s: %w", object, err)
	}
	return nil
}

// Close releases the storage client.
func (s *GCS) Close() error {
	return s.client.Close()
}
