package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nirmanai/internal/blobstore"
	"nirmanai/internal/events"
	"nirmanai/internal/llm"
	"nirmanai/internal/metastore"
	"nirmanai/internal/render"
	"nirmanai/internal/suggest"
)

type stubAdapter struct {
	err error
}

func (s stubAdapter) Render(_ context.Context, _ render.AdapterRequest) (render.AdapterOutput, error) {
	if s.err != nil {
		return render.AdapterOutput{}, s.err
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png"))
	return render.AdapterOutput{ImageURL: uri}, nil
}

type stubLLM struct{ reply string }

func (s stubLLM) ChatCompletion(_ context.Context, _ []llm.ChatMessage, _ float64) (string, error) {
	return s.reply, nil
}

func newTestServer(t *testing.T, adapterErr error) (*httptest.Server, metastore.Store) {
	t.Helper()

	blobs, err := blobstore.NewLocalStore(t.TempDir(), "http://localhost:8080/files")
	if err != nil {
		t.Fatal(err)
	}
	meta := metastore.NewInMemoryStore()
	broker := events.NewBroker()

	adapter := stubAdapter{err: adapterErr}
	pipeline := &render.Pipeline{
		Blobs: blobs,
		Meta:  meta,
		Adapters: map[render.Feature]render.Adapter{
			render.FeatureSketch:    adapter,
			render.FeatureMoodboard: adapter,
			render.FeatureText:      adapter,
			render.FeatureEnhance:   adapter,
		},
		Events: broker,
	}

	handler := Handler{
		Pipeline: pipeline,
		Meta:     meta,
		Advisor:  suggest.NewAdvisor(stubLLM{reply: `{"suggestedStyle":"Modern","reasoning":"ok"}`}, meta),
		Events:   broker,
	}

	srv := New("0", handler, nil)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, meta
}

func postJSON(t *testing.T, url, user string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRenderTextEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/render/text", "u1", map[string]any{
		"prompt": "a courtyard house",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result render.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.ImageURL, "/files/users/u1/images/text-to-render/") {
		t.Errorf("imageUrl = %q", result.ImageURL)
	}
	if result.RecordID == "" {
		t.Error("expected a record id")
	}

	// The generation must now show up in history.
	histReq, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/history", nil)
	histReq.Header.Set(userHeader, "u1")
	histResp, err := http.DefaultClient.Do(histReq)
	if err != nil {
		t.Fatal(err)
	}
	defer histResp.Body.Close()

	var records []metastore.GeneratedImage
	if err := json.NewDecoder(histResp.Body).Decode(&records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Type != metastore.TypeTextToImage {
		t.Fatalf("history = %+v", records)
	}
}

func TestRenderRequiresUserHeader(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/render/text", "", map[string]any{"prompt": "x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRenderValidationFailure(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	// Moodboard without a second image.
	resp := postJSON(t, ts.URL+"/api/render/moodboard", "u1", map[string]any{
		"image1Url":   "https://cdn.test/a.png",
		"aspectRatio": "1:1",
		"width":       512,
		"height":      512,
		"style":       "Modern",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRenderProviderFailure(t *testing.T) {
	ts, _ := newTestServer(t, &render.InferenceError{Provider: "stub", Err: errors.New("rate limited")})

	resp := postJSON(t, ts.URL+"/api/render/text", "u1", map[string]any{"prompt": "x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body["error"], "Text to image processing failed") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestRenderSketchMultipart(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("sketch", "plan.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("sketch-bytes"))
	form.WriteField("aspect_ratio", "1:1")
	form.WriteField("width", "1024")
	form.WriteField("height", "1024")
	form.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/render/sketch", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set(userHeader, "u2")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result render.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.ImageURL, "/images/sketch-to-render/") {
		t.Errorf("imageUrl = %q", result.ImageURL)
	}
}

func TestMoodboardsEmptyList(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/moodboards", nil)
	req.Header.Set(userHeader, "u1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var projects []metastore.MoodboardProject
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		t.Fatalf("expected a JSON array, got error %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("projects = %+v", projects)
	}
}

func TestSuggestStyleEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/suggest/style", "u1", map[string]any{"brief": "a lake house"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var suggestion suggest.Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&suggestion); err != nil {
		t.Fatal(err)
	}
	if suggestion.SuggestedStyle != "Modern" {
		t.Errorf("style = %q", suggestion.SuggestedStyle)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
