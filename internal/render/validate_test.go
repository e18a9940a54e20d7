package render

import (
	"errors"
	"testing"
)

func sketchRequest() Request {
	return Request{
		Feature:     FeatureSketch,
		Sketch:      &SourceAsset{Data: []byte("png-bytes"), ContentType: "image/png"},
		AspectRatio: "1:1",
		Width:       1024,
		Height:      1024,
	}
}

func TestValidateRequiresUser(t *testing.T) {
	req := sketchRequest()
	err := req.Validate("  ")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateSketchRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing sketch", func(r *Request) { r.Sketch = nil }},
		{"empty sketch", func(r *Request) { r.Sketch = &SourceAsset{} }},
		{"missing ratio", func(r *Request) { r.AspectRatio = "" }},
		{"missing size", func(r *Request) { r.Width = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sketchRequest()
			tc.mutate(&req)
			var verr *ValidationError
			if err := req.Validate("u1"); !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestValidateMoodboardRequiresBothImages(t *testing.T) {
	req := Request{
		Feature:     FeatureMoodboard,
		Image1:      &SourceAsset{Data: []byte("a")},
		AspectRatio: "1:1",
		Width:       512,
		Height:      512,
		Style:       "Modern",
	}
	var verr *ValidationError
	if err := req.Validate("u1"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing second image, got %v", err)
	}
}

func TestValidateTextRequiresPrompt(t *testing.T) {
	req := Request{Feature: FeatureText, Prompt: "   "}
	var verr *ValidationError
	if err := req.Validate("u1"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	req.Prompt = "a glass pavilion"
	if err := req.Validate("u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateEnhanceAcceptsURLSource(t *testing.T) {
	req := Request{
		Feature: FeatureEnhance,
		Source:  &SourceAsset{URL: "https://cdn.example/users/u1/images/base.png"},
	}
	if err := req.Validate("u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckAspectRatio(t *testing.T) {
	cases := []struct {
		ratio  string
		width  int
		height int
		ok     bool
	}{
		{"1:1", 1024, 1024, true},
		{"16:9", 1920, 1080, true},
		{"16:9", 1024, 576, true},
		{"16:9", 1024, 577, false},
		{"4:3", 1024, 768, true},
		{"4:3", 1024, 760, false},
		{"9:16", 1080, 1920, true},
		{"bogus", 1024, 1024, false},
		{"0:1", 512, 512, false},
	}
	for _, tc := range cases {
		err := checkAspectRatio(tc.ratio, tc.width, tc.height)
		if tc.ok && err != nil {
			t.Errorf("%s %dx%d: unexpected error %v", tc.ratio, tc.width, tc.height, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s %dx%d: expected error", tc.ratio, tc.width, tc.height)
		}
	}
}

func TestValidateDimensionMismatch(t *testing.T) {
	req := sketchRequest()
	req.AspectRatio = "16:9"
	req.Width = 1024
	req.Height = 577
	var verr *ValidationError
	if err := req.Validate("u1"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	req.Height = 576
	if err := req.Validate("u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
