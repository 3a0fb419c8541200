// Package storage keeps proof-of-collection photos in a MinIO bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/erazemk/polyswap/internal/config"
)

// Object is a stored proof photo.
type Object struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Storage stores proof photos.
type Storage interface {
	PutProof(ctx context.Context, offerID string, data []byte, contentType string) (*Object, error)
	RemoveProof(ctx context.Context, name string) error
}

// MinIO is a Storage backed by a MinIO (or any S3 compatible) bucket.
type MinIO struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

var _ Storage = (*MinIO)(nil)

// NewMinIO connects to MinIO and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg config.MinIO) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinIO{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
	}, nil
}

// PutProof uploads a proof photo for an offer.
func (m *MinIO) PutProof(ctx context.Context, offerID string, data []byte, contentType string) (*Object, error) {
	now := time.Now().UTC()
	name := objectName(offerID, now, uuid.NewString())

	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"offer-id":    offerID,
				"uploaded-at": now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return nil, fmt.Errorf("uploading proof: %w", err)
	}

	return &Object{Name: name, URL: objectURL(m.publicURL, m.bucket, name)}, nil
}

// RemoveProof deletes a stored proof photo.
func (m *MinIO) RemoveProof(ctx context.Context, name string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing proof %q: %w", name, err)
	}
	return nil
}

func objectName(offerID string, now time.Time, id string) string {
	return fmt.Sprintf("proofs/%s/%d/%02d/%s.jpg", offerID, now.Year(), now.Month(), id)
}

// publicBase returns the URL prefix objects are served from.
func publicBase(cfg config.MinIO) string {
	if cfg.PublicURL != "" {
		return strings.TrimSuffix(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}

func objectURL(base, bucket, name string) string {
	return base + "/" + url.PathEscape(bucket) + "/" + (&url.URL{Path: name}).EscapedPath()
}
