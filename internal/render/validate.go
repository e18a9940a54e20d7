package render

import (
	"math"
	"strconv"
	"strings"
)

// Validate checks per-feature required fields and dimension consistency.
// A nil return guarantees the request is safe to run without further checks.
func (r Request) Validate(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return validationErrorf("user id is required")
	}

	switch r.Feature {
	case FeatureSketch:
		if emptyAsset(r.Sketch) {
			return validationErrorf("sketch image is required")
		}
		if r.AspectRatio == "" {
			return validationErrorf("aspect ratio is required")
		}
		if r.Width <= 0 || r.Height <= 0 {
			return validationErrorf("output width and height are required")
		}
	case FeatureMoodboard:
		if emptyAsset(r.Image1) {
			return validationErrorf("first moodboard image is required")
		}
		if emptyAsset(r.Image2) {
			return validationErrorf("second moodboard image is required")
		}
		if r.AspectRatio == "" {
			return validationErrorf("aspect ratio is required")
		}
		if r.Width <= 0 || r.Height <= 0 {
			return validationErrorf("output width and height are required")
		}
		if strings.TrimSpace(r.Style) == "" {
			return validationErrorf("architectural style is required")
		}
	case FeatureText:
		if strings.TrimSpace(r.Prompt) == "" {
			return validationErrorf("text description is required")
		}
	case FeatureEnhance:
		if emptyAsset(r.Source) {
			return validationErrorf("source image is required")
		}
	default:
		return validationErrorf("unknown feature %q", string(r.Feature))
	}

	if r.AspectRatio != "" && r.Width > 0 && r.Height > 0 {
		if err := checkAspectRatio(r.AspectRatio, r.Width, r.Height); err != nil {
			return err
		}
	}

	return nil
}

func emptyAsset(asset *SourceAsset) bool {
	return asset == nil || (strings.TrimSpace(asset.URL) == "" && len(asset.Data) == 0)
}

// checkAspectRatio rejects width/height pairs that do not match the declared
// ratio. Dimensions must land within one pixel of the ratio line; a mismatch
// is a validation failure, never a silent correction.
func checkAspectRatio(ratio string, width, height int) error {
	rw, rh, ok := parseAspectRatio(ratio)
	if !ok {
		return validationErrorf("invalid aspect ratio %q", ratio)
	}

	expected := float64(width) * rh / rw
	if math.Abs(float64(height)-expected) >= 1 {
		return validationErrorf("dimensions %dx%d do not match aspect ratio %s", width, height, ratio)
	}
	return nil
}

func parseAspectRatio(ratio string) (float64, float64, bool) {
	parts := strings.Split(strings.TrimSpace(ratio), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	rw, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || rw <= 0 {
		return 0, 0, false
	}
	rh, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || rh <= 0 {
		return 0, 0, false
	}
	return float64(rw), float64(rh), true
}
