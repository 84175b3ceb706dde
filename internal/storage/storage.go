// Package storage keeps uploaded profile images in a blob store.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"invoicer/internal/config"
)

// Object identifies a stored blob. ID is what Delete expects; URL is public.
type Object struct {
	ID  string
	URL string
}

// BlobStore stores opaque binary objects.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (Object, error)
	Delete(ctx context.Context, id string) error
}

// ProfileImageKey returns a fresh object key for a user's profile image.
func ProfileImageKey(userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("profile-pics/%s/%s%s", userID, uuid.NewString(), ext)
}

// New builds the BlobStore selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	case "memory", "":
		return NewMemoryStore("/uploads"), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
