// Package providers contains the inference adapters behind the generation
// pipeline. Each adapter translates the feature-agnostic request into one
// provider's call shape and reports failures as *render.InferenceError.
package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"nirmanai/internal/render"
)

// imageBytes resolves an input image to raw bytes and a MIME type, fetching
// over HTTP when only a URL is known.
func imageBytes(ctx context.Context, img render.AdapterImage) ([]byte, string, error) {
	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	if len(img.Data) > 0 {
		return img.Data, mime, nil
	}
	if strings.TrimSpace(img.URL) == "" {
		return nil, "", errors.New("input image has neither data nor URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch input image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("status %d fetching %s", resp.StatusCode, img.URL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mime = ct
	}
	return data, mime, nil
}

// imageRef returns something a provider can dereference: the image's URL when
// it has one, otherwise its bytes as a data URI.
func imageRef(img render.AdapterImage) (string, error) {
	if strings.TrimSpace(img.URL) != "" {
		return img.URL, nil
	}
	if len(img.Data) == 0 {
		return "", errors.New("input image has neither data nor URL")
	}
	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img.Data)), nil
}
