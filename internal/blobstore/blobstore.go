package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDisabled indicates that blob storage is not currently configured.
var ErrDisabled = errors.New("blob storage disabled")

// UploadInput wraps the payload required for persisting an asset.
type UploadInput struct {
	UserID      string
	Subfolder   string
	Ext         string
	ContentType string
	Body        io.Reader
	Size        int64
}

// Object captures the durable public URL of a stored asset together with the
// internal path used for later deletion.
type Object struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// Store hides the backing implementation for storing and deleting assets.
type Store interface {
	Upload(ctx context.Context, input UploadInput) (Object, error)
	Delete(ctx context.Context, path string) error
}

// objectPath builds a per-user object path. Timestamp plus random suffix keeps
// concurrent uploads for the same user collision-free without coordination.
func objectPath(userID, subfolder, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = "png"
	}
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("users/%s/%s/%d-%s.%s",
		userID, strings.Trim(subfolder, "/"), time.Now().UnixMilli(), suffix, ext)
}

type disabledStore struct{}

func (disabledStore) Upload(_ context.Context, _ UploadInput) (Object, error) {
	return Object{}, ErrDisabled
}

func (disabledStore) Delete(_ context.Context, _ string) error {
	return ErrDisabled
}

// Disabled returns a store that always signals disabled storage.
func Disabled() Store {
	return disabledStore{}
}
