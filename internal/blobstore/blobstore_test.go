package blobstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var pathPattern = regexp.MustCompile(`^users/u1/sketches/\d+-[0-9a-f]{8}\.png$`)

func TestObjectPathLayout(t *testing.T) {
	path := objectPath("u1", "sketches", "png")
	if !pathPattern.MatchString(path) {
		t.Fatalf("path = %q, want users/u1/sketches/<ts>-<rand>.png", path)
	}
}

func TestObjectPathDefaultsExtension(t *testing.T) {
	for _, ext := range []string{"", ".", "  "} {
		path := objectPath("u1", "images/text-to-render", ext)
		if !strings.HasSuffix(path, ".png") {
			t.Fatalf("objectPath(%q) = %q, want .png suffix", ext, path)
		}
	}
	if path := objectPath("u1", "images", ".JPEG"); !strings.HasSuffix(path, ".jpeg") {
		t.Fatalf("path = %q, want lowercase .jpeg suffix", path)
	}
}

func TestObjectPathUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		path := objectPath("u1", "sketches", "png")
		if seen[path] {
			t.Fatalf("duplicate path generated: %s", path)
		}
		seen[path] = true
	}
}

func TestLocalStoreUploadDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8080/files")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	obj, err := store.Upload(context.Background(), UploadInput{
		UserID:    "u1",
		Subfolder: "sketches",
		Ext:       "png",
		Body:      bytes.NewReader([]byte("sketch-bytes")),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(obj.URL, "http://localhost:8080/files/users/u1/sketches/") {
		t.Fatalf("URL = %q, want base URL prefix", obj.URL)
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(obj.Path)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "sketch-bytes" {
		t.Fatalf("stored bytes = %q", data)
	}

	if err := store.Delete(context.Background(), obj.Path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(obj.Path))); !os.IsNotExist(err) {
		t.Fatalf("file still present after delete")
	}
}

func TestLocalStoreRejectsMissingBody(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if _, err := store.Upload(context.Background(), UploadInput{UserID: "u1"}); err == nil {
		t.Fatal("expected error for missing body")
	}
}

func TestDisabledStore(t *testing.T) {
	store := Disabled()
	if _, err := store.Upload(context.Background(), UploadInput{}); err != ErrDisabled {
		t.Fatalf("Upload err = %v, want ErrDisabled", err)
	}
	if err := store.Delete(context.Background(), "users/u1/sketches/x.png"); err != ErrDisabled {
		t.Fatalf("Delete err = %v, want ErrDisabled", err)
	}
}
