package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"nirmanai/internal/events"
	"nirmanai/internal/metastore"
	"nirmanai/internal/render"
	"nirmanai/internal/suggest"
)

const (
	maxImageBytes = 10 * 1024 * 1024 // 10 MB per input image
	userHeader    = "X-User-Id"
)

// Handler bundles dependencies for the generation endpoints.
type Handler struct {
	Pipeline *render.Pipeline
	Meta     metastore.Store
	Advisor  *suggest.Advisor
	Events   *events.Broker
}

// RenderSketch handles POST /api/render/sketch.
func (h Handler) RenderSketch(w http.ResponseWriter, r *http.Request) {
	h.runRender(w, r, render.FeatureSketch)
}

// RenderMoodboard handles POST /api/render/moodboard.
func (h Handler) RenderMoodboard(w http.ResponseWriter, r *http.Request) {
	h.runRender(w, r, render.FeatureMoodboard)
}

// RenderText handles POST /api/render/text.
func (h Handler) RenderText(w http.ResponseWriter, r *http.Request) {
	h.runRender(w, r, render.FeatureText)
}

// EnhanceDetails handles POST /api/render/enhance.
func (h Handler) EnhanceDetails(w http.ResponseWriter, r *http.Request) {
	h.runRender(w, r, render.FeatureEnhance)
}

func (h Handler) runRender(w http.ResponseWriter, r *http.Request, feature render.Feature) {
	userID := strings.TrimSpace(r.Header.Get(userHeader))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing "+userHeader+" header")
		return
	}

	req, err := parseRenderRequest(r, feature)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Pipeline.Generate(r.Context(), req, userID)
	if err != nil {
		status := statusForError(err)
		if status >= 500 {
			log.Printf("render %s failed for user %s: %v", feature, userID, err)
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// renderRequestBody is the JSON shape of a render call. Image fields carry
// durable URLs; raw bytes come in via multipart instead.
type renderRequestBody struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Style       string `json:"style"`
	SketchURL   string `json:"sketchUrl"`
	Image1URL   string `json:"image1Url"`
	Image2URL   string `json:"image2Url"`
	ImageURL    string `json:"imageUrl"`
}

func parseRenderRequest(r *http.Request, feature render.Feature) (render.Request, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return parseMultipartRender(r, feature)
	}

	var body renderRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return render.Request{}, fmt.Errorf("invalid request body")
	}

	req := render.Request{
		Feature:     feature,
		Prompt:      strings.TrimSpace(body.Prompt),
		AspectRatio: strings.TrimSpace(body.AspectRatio),
		Width:       body.Width,
		Height:      body.Height,
		Style:       strings.TrimSpace(body.Style),
	}
	if url := strings.TrimSpace(body.SketchURL); url != "" {
		req.Sketch = &render.SourceAsset{URL: url}
	}
	if url := strings.TrimSpace(body.Image1URL); url != "" {
		req.Image1 = &render.SourceAsset{URL: url}
	}
	if url := strings.TrimSpace(body.Image2URL); url != "" {
		req.Image2 = &render.SourceAsset{URL: url}
	}
	if url := strings.TrimSpace(body.ImageURL); url != "" {
		req.Source = &render.SourceAsset{URL: url}
	}
	return req, nil
}

func parseMultipartRender(r *http.Request, feature render.Feature) (render.Request, error) {
	const maxFormMemory = 2*maxImageBytes + (1 << 20)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return render.Request{}, fmt.Errorf("invalid multipart payload: %w", err)
	}

	req := render.Request{
		Feature:     feature,
		Prompt:      strings.TrimSpace(r.FormValue("prompt")),
		AspectRatio: strings.TrimSpace(r.FormValue("aspect_ratio")),
		Style:       strings.TrimSpace(r.FormValue("style")),
	}

	if widthStr := strings.TrimSpace(r.FormValue("width")); widthStr != "" {
		width, err := strconv.Atoi(widthStr)
		if err != nil {
			return req, fmt.Errorf("invalid width")
		}
		req.Width = width
	}
	if heightStr := strings.TrimSpace(r.FormValue("height")); heightStr != "" {
		height, err := strconv.Atoi(heightStr)
		if err != nil {
			return req, fmt.Errorf("invalid height")
		}
		req.Height = height
	}

	var err error
	switch feature {
	case render.FeatureSketch:
		req.Sketch, err = formImage(r, "sketch")
	case render.FeatureMoodboard:
		if req.Image1, err = formImage(r, "image1"); err != nil {
			return req, err
		}
		req.Image2, err = formImage(r, "image2")
	case render.FeatureEnhance:
		req.Source, err = formImage(r, "image")
		if req.Source == nil {
			if url := strings.TrimSpace(r.FormValue("image_url")); url != "" {
				req.Source = &render.SourceAsset{URL: url}
			}
		}
	}
	return req, err
}

func formImage(r *http.Request, field string) (*render.SourceAsset, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%s is too large (max %d MB)", field, maxImageBytes/(1024*1024))
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &render.SourceAsset{
		Data:        data,
		ContentType: contentType,
		Filename:    header.Filename,
	}, nil
}

// History handles GET /api/history.
func (h Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(userHeader))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing "+userHeader+" header")
		return
	}

	records, err := h.Meta.ListGeneratedImages(r.Context(), userID)
	if err != nil {
		log.Printf("list history for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	if records == nil {
		records = []metastore.GeneratedImage{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Moodboards handles GET /api/moodboards.
func (h Handler) Moodboards(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(userHeader))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing "+userHeader+" header")
		return
	}

	projects, err := h.Meta.ListMoodboardProjects(r.Context(), userID)
	if err != nil {
		log.Printf("list moodboards for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "could not load moodboard projects")
		return
	}
	if projects == nil {
		projects = []metastore.MoodboardProject{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// SuggestStyle handles POST /api/suggest/style.
func (h Handler) SuggestStyle(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(userHeader))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing "+userHeader+" header")
		return
	}
	if h.Advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "style suggestions not configured")
		return
	}

	var body struct {
		Brief string `json:"brief"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestion, err := h.Advisor.Suggest(r.Context(), userID, body.Brief)
	if err != nil {
		log.Printf("style suggestion for user %s: %v", userID, err)
		writeError(w, http.StatusBadGateway, "could not produce a suggestion")
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// StreamEvents handles GET /api/events, streaming generation progress for the
// calling user as server-sent events.
func (h Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(userHeader))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user"))
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user identity")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch := h.Events.Subscribe()
	defer h.Events.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.UserID != userID {
				continue
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func statusForError(err error) int {
	var (
		validationErr *render.ValidationError
		inferenceErr  *render.InferenceError
		fetchErr      *render.FetchError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &inferenceErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
