package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"nirmanai/internal/blobstore"
	"nirmanai/internal/events"
	"nirmanai/internal/metastore"
	"nirmanai/internal/prompts"
)

const maxAssetBytes = 32 * 1024 * 1024 // 32 MB

// Pipeline drives one end-to-end generation: validate, upload inputs, invoke
// the feature's adapter, re-host the result, record provenance. Instances are
// safe for concurrent use; each call owns only its own uploaded inputs.
type Pipeline struct {
	Blobs    blobstore.Store
	Meta     metastore.Store
	Adapters map[Feature]Adapter
	Events   *events.Broker

	// AdapterTimeout bounds the provider call, the only step with
	// provider-controlled latency. Zero means no deadline.
	AdapterTimeout time.Duration

	// Client fetches generated assets from provider URLs; http.DefaultClient
	// when nil.
	Client *http.Client
}

// Generate runs the full pipeline for one request. On any aborting failure,
// input assets uploaded during this call are deleted before the error is
// returned; a metadata write failure after the render succeeded only sets
// Result.Warning.
func (p *Pipeline) Generate(ctx context.Context, req Request, userID string) (Result, error) {
	if err := req.Validate(userID); err != nil {
		return Result{}, p.fail(req.Feature, userID, err)
	}

	adapter, ok := p.Adapters[req.Feature]
	if !ok {
		return Result{}, p.fail(req.Feature, userID,
			&InferenceError{Err: fmt.Errorf("no adapter configured for feature %q", req.Feature)})
	}
	p.publish(userID, req.Feature, events.PhaseAccepted, "")

	uploaded, err := p.uploadInputs(ctx, req, userID)
	if err != nil {
		return Result{}, p.fail(req.Feature, userID, err)
	}
	if len(uploaded) > 0 {
		p.publish(userID, req.Feature, events.PhaseInputs, "")
	}

	// From here on, any aborting failure must release the inputs exactly once.
	cleanup := func() {
		for _, obj := range uploaded {
			if err := p.Blobs.Delete(ctx, obj.Path); err != nil {
				log.Printf("render: compensating delete of %s failed: %v", obj.Path, err)
			}
		}
		uploaded = nil
	}

	p.publish(userID, req.Feature, events.PhaseInference, "")
	output, err := p.invokeAdapter(ctx, adapter, req)
	if err != nil {
		cleanup()
		return Result{}, p.fail(req.Feature, userID, err)
	}

	data, contentType, ext, err := p.fetchAsset(ctx, output.ImageURL)
	if err != nil {
		cleanup()
		return Result{}, p.fail(req.Feature, userID, err)
	}

	p.publish(userID, req.Feature, events.PhaseRehosting, "")
	final, err := p.Blobs.Upload(ctx, blobstore.UploadInput{
		UserID:      userID,
		Subfolder:   outputSubfolder(req.Feature),
		Ext:         ext,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	})
	if err != nil {
		cleanup()
		return Result{}, p.fail(req.Feature, userID, &UploadError{Err: err})
	}

	result := Result{ImageURL: final.URL}
	result.RecordID, result.Warning = p.persistRecord(ctx, req, userID, final.URL, uploaded)

	p.publish(userID, req.Feature, events.PhaseComplete, "")
	return result, nil
}

// uploadInputs persists raw-byte source assets under the user's namespace and
// rewrites each asset's URL to the durable one. Assets that already carry a
// URL are left alone. Uploads run sequentially; on failure, assets uploaded so
// far are released here since the caller never sees them.
func (p *Pipeline) uploadInputs(ctx context.Context, req Request, userID string) ([]blobstore.Object, error) {
	var uploaded []blobstore.Object

	for _, asset := range inputAssets(req) {
		if asset == nil || len(asset.Data) == 0 || asset.URL != "" {
			continue
		}

		obj, err := p.Blobs.Upload(ctx, blobstore.UploadInput{
			UserID:      userID,
			Subfolder:   inputSubfolder(req.Feature),
			Ext:         assetExt(asset),
			ContentType: asset.ContentType,
			Body:        bytes.NewReader(asset.Data),
			Size:        int64(len(asset.Data)),
		})
		if err != nil {
			for _, prev := range uploaded {
				if derr := p.Blobs.Delete(ctx, prev.Path); derr != nil {
					log.Printf("render: compensating delete of %s failed: %v", prev.Path, derr)
				}
			}
			return nil, &UploadError{Err: err}
		}

		asset.URL = obj.URL
		uploaded = append(uploaded, obj)
	}

	return uploaded, nil
}

func (p *Pipeline) invokeAdapter(ctx context.Context, adapter Adapter, req Request) (AdapterOutput, error) {
	if p.AdapterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.AdapterTimeout)
		defer cancel()
	}

	output, err := adapter.Render(ctx, p.adapterRequest(req))
	if err != nil {
		var infErr *InferenceError
		if errors.As(err, &infErr) {
			return AdapterOutput{}, err
		}
		return AdapterOutput{}, &InferenceError{Err: err}
	}
	if strings.TrimSpace(output.ImageURL) == "" {
		return AdapterOutput{}, &InferenceError{Err: errors.New("provider returned no image")}
	}
	return output, nil
}

func (p *Pipeline) adapterRequest(req Request) AdapterRequest {
	out := AdapterRequest{
		AspectRatio: req.AspectRatio,
		Width:       req.Width,
		Height:      req.Height,
		Style:       req.Style,
	}

	switch req.Feature {
	case FeatureSketch:
		out.Prompt = prompts.Sketch(req.AspectRatio, req.Width, req.Height)
		out.Images = adapterImages(req.Sketch)
	case FeatureMoodboard:
		out.Prompt = prompts.Moodboard(req.Style, req.AspectRatio, req.Width, req.Height)
		out.Images = adapterImages(req.Image1, req.Image2)
	case FeatureText:
		out.Prompt = prompts.Text(req.Prompt, req.AspectRatio, req.Width, req.Height, req.Style)
	case FeatureEnhance:
		out.Prompt = prompts.Enhance(req.Prompt)
		out.Images = adapterImages(req.Source)
	}

	return out
}

// fetchAsset retrieves the generated image from the adapter's URL. Providers
// that return bytes inline hand back a data URI, which is decoded in place;
// anything else is fetched over HTTP, where a non-2xx response is an error.
func (p *Pipeline) fetchAsset(ctx context.Context, rawURL string) ([]byte, string, string, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURI(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", &FetchError{URL: rawURL, Err: err}
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", "", &FetchError{URL: rawURL, Err: fmt.Errorf("status %d from %s", resp.StatusCode, rawURL)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, "", "", &FetchError{URL: rawURL, Err: err}
	}
	if len(data) == 0 {
		return nil, "", "", &FetchError{URL: rawURL, Err: errors.New("empty response body")}
	}
	if len(data) > maxAssetBytes {
		return nil, "", "", &FetchError{URL: rawURL, Err: fmt.Errorf("asset exceeds %d bytes", maxAssetBytes)}
	}

	ext := urlExtension(rawURL)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/" + ext
	}
	return data, contentType, ext, nil
}

// persistRecord writes the provenance record(s). Failure here never rolls the
// generation back; the hosted image is the deliverable and metadata stays
// best-effort.
func (p *Pipeline) persistRecord(ctx context.Context, req Request, userID, imageURL string, inputs []blobstore.Object) (string, string) {
	params := map[string]any{}
	if req.AspectRatio != "" {
		params["aspectRatio"] = req.AspectRatio
	}
	if req.Width > 0 && req.Height > 0 {
		params["outputSize"] = fmt.Sprintf("%dx%d", req.Width, req.Height)
	}
	if req.Style != "" {
		params["architecturalStyle"] = req.Style
	}
	if len(inputs) > 0 {
		paths := make([]string, 0, len(inputs))
		for _, obj := range inputs {
			paths = append(paths, obj.Path)
		}
		params["inputPaths"] = paths
	}

	record := metastore.GeneratedImage{
		UserID:            userID,
		Type:              recordType(req.Feature),
		GeneratedImageURL: imageURL,
		OriginalImageURL:  originalImageURL(req),
		Prompt:            prompts.Summary(string(req.Feature), req.Prompt, req.Style, req.AspectRatio, req.Width, req.Height),
		Parameters:        params,
	}

	recordID, err := p.Meta.AddGeneratedImage(ctx, record)
	if err != nil {
		log.Printf("render: saving %s record for user %s failed: %v", record.Type, userID, err)
		return "", "The image was generated but could not be saved to your gallery."
	}

	if req.Feature == FeatureMoodboard {
		project := metastore.MoodboardProject{
			UserID:            userID,
			Name:              fmt.Sprintf("Moodboard render %s", time.Now().Format("2006-01-02")),
			InputImageURLs:    []string{req.Image1.URL, req.Image2.URL},
			GeneratedImageURL: imageURL,
			Parameters:        params,
		}
		if _, err := p.Meta.AddMoodboardProject(ctx, project); err != nil {
			log.Printf("render: saving moodboard project for user %s failed: %v", userID, err)
			return recordID, "The image was generated but the moodboard project could not be saved."
		}
	}

	return recordID, ""
}

func (p *Pipeline) fail(feature Feature, userID string, err error) error {
	p.publish(userID, feature, events.PhaseFailed, err.Error())
	return fmt.Errorf("%s: %w", failurePrefix(feature), err)
}

func (p *Pipeline) publish(userID string, feature Feature, phase, message string) {
	if p.Events == nil {
		return
	}
	p.Events.Publish(events.Event{
		UserID:  userID,
		Feature: string(feature),
		Phase:   phase,
		Message: message,
	})
}

func inputAssets(req Request) []*SourceAsset {
	switch req.Feature {
	case FeatureSketch:
		return []*SourceAsset{req.Sketch}
	case FeatureMoodboard:
		return []*SourceAsset{req.Image1, req.Image2}
	case FeatureEnhance:
		return []*SourceAsset{req.Source}
	default:
		return nil
	}
}

func adapterImages(assets ...*SourceAsset) []AdapterImage {
	images := make([]AdapterImage, 0, len(assets))
	for _, asset := range assets {
		if asset == nil {
			continue
		}
		images = append(images, AdapterImage{
			URL:  asset.URL,
			Data: asset.Data,
			MIME: asset.ContentType,
		})
	}
	return images
}

func originalImageURL(req Request) string {
	switch req.Feature {
	case FeatureSketch:
		if req.Sketch != nil {
			return req.Sketch.URL
		}
	case FeatureEnhance:
		if req.Source != nil {
			return req.Source.URL
		}
	}
	return ""
}

func assetExt(asset *SourceAsset) string {
	if asset.Filename != "" {
		if ext := strings.TrimPrefix(path.Ext(asset.Filename), "."); ext != "" {
			return ext
		}
	}
	return extFromMIME(asset.ContentType)
}

// urlExtension derives the stored extension from the provider URL's path
// suffix, defaulting to png when absent or unparsable.
func urlExtension(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "png"
	}
	ext := strings.TrimPrefix(path.Ext(parsed.Path), ".")
	if ext == "" {
		return "png"
	}
	return strings.ToLower(ext)
}

func decodeDataURI(uri string) ([]byte, string, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, encoded, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", "", &FetchError{URL: "data:", Err: errors.New("malformed data URI")}
	}

	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", "", &FetchError{URL: "data:", Err: fmt.Errorf("decode data URI: %w", err)}
	}
	if len(data) == 0 {
		return nil, "", "", &FetchError{URL: "data:", Err: errors.New("empty data URI payload")}
	}
	return data, mime, extFromMIME(mime), nil
}

func extFromMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
