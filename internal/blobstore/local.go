package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps assets on the local filesystem for development setups
// without an object storage bucket.
type LocalStore struct {
	BaseDir string
	BaseURL string
}

// NewLocalStore constructs a store rooted at the provided directory.
// If baseDir is empty, a directory under os.TempDir() is used.
func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	dir := baseDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "nirmanai-assets")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local asset dir: %w", err)
	}
	return &LocalStore{
		BaseDir: dir,
		BaseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Upload writes the asset under the same users/{id}/... layout the S3 store uses.
func (l *LocalStore) Upload(_ context.Context, input UploadInput) (Object, error) {
	if input.Body == nil {
		return Object{}, fmt.Errorf("upload body is required")
	}
	if input.UserID == "" {
		return Object{}, fmt.Errorf("user id is required")
	}

	key := objectPath(input.UserID, input.Subfolder, input.Ext)
	target := filepath.Join(l.BaseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("create asset dir: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return Object{}, fmt.Errorf("create asset file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, input.Body); err != nil {
		os.Remove(target)
		return Object{}, fmt.Errorf("write asset file: %w", err)
	}

	url := key
	if l.BaseURL != "" {
		url = fmt.Sprintf("%s/%s", l.BaseURL, key)
	}
	return Object{URL: url, Path: key}, nil
}

// Delete removes a stored asset by its path.
func (l *LocalStore) Delete(_ context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("object path is required")
	}
	target := filepath.Join(l.BaseDir, filepath.FromSlash(path))
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("remove asset file: %w", err)
	}
	return nil
}
