// Package gcs stores user avatars in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/oksasatya/go-water-tracker/pkg/helpers"
)

var ErrNotConfigured = errors.New("gcs not configured")

// Object names are unique per upload, so clients may cache them for long.
const avatarCacheControl = "public, max-age=86400"

type AvatarStorage struct {
	client *storage.Client
	bucket string
}

func NewAvatarStorage(client *storage.Client, bucket string) *AvatarStorage {
	return &AvatarStorage{client: client, bucket: bucket}
}

// Upload writes the image under avatars/<user>/<uuid><ext> and returns its public URL.
func (s *AvatarStorage) Upload(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s == nil || s.client == nil || s.bucket == "" {
		return "", ErrNotConfigured
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	return helpers.UploadObject(ctx, s.client, s.bucket, objectPath, contentType, avatarCacheControl, r)
}
