package render

import "context"

// Feature identifies one of the generation flows.
type Feature string

const (
	FeatureSketch    Feature = "sketch"
	FeatureMoodboard Feature = "moodboard"
	FeatureText      Feature = "text"
	FeatureEnhance   Feature = "enhance"
)

// SourceAsset references a user-provided input image, either as raw bytes from
// an upload or as a durable URL the caller already holds.
type SourceAsset struct {
	URL         string
	Data        []byte
	ContentType string
	Filename    string
}

// Request carries the parameters for one generation. Feature selects which of
// the optional fields apply; Validate enforces the per-feature requirements.
type Request struct {
	Feature Feature

	Sketch *SourceAsset // sketch-to-render input
	Image1 *SourceAsset // moodboard-render first input
	Image2 *SourceAsset // moodboard-render second input
	Source *SourceAsset // enhance-details input

	Prompt      string // text description (text) or extra instructions (enhance)
	AspectRatio string // e.g. "16:9"
	Width       int
	Height      int
	Style       string // architectural style label
}

// Result is returned only after the generated asset has been re-hosted in the
// application's own blob store; ImageURL never points at a provider URL.
type Result struct {
	ImageURL string `json:"imageUrl"`
	RecordID string `json:"recordId,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// AdapterImage is one input image handed to an inference adapter.
type AdapterImage struct {
	URL  string
	Data []byte
	MIME string
}

// AdapterRequest is the validated, feature-agnostic payload adapters translate
// into their provider's call shape.
type AdapterRequest struct {
	Prompt      string
	AspectRatio string
	Width       int
	Height      int
	Style       string
	Images      []AdapterImage
}

// AdapterOutput holds the provider's result. ImageURL may be an https URL or a
// data URI, depending on whether the provider hosts results or returns bytes
// inline; the pipeline normalizes both.
type AdapterOutput struct {
	ImageURL string
}

// Adapter wraps a single external image-generation call. Adapters are pure
// translation layers: no storage access, and provider failures always come
// back as *InferenceError.
type Adapter interface {
	Render(ctx context.Context, req AdapterRequest) (AdapterOutput, error)
}

// Subfolder names under users/{id}/ for transient inputs.
func inputSubfolder(feature Feature) string {
	switch feature {
	case FeatureMoodboard:
		return "moodboard_inputs"
	case FeatureEnhance:
		return "enhancement_inputs"
	default:
		return "sketches"
	}
}

// Subfolder names under users/{id}/images/ for finished renders.
func outputSubfolder(feature Feature) string {
	switch feature {
	case FeatureSketch:
		return "images/sketch-to-render"
	case FeatureMoodboard:
		return "images/moodboard-render"
	case FeatureText:
		return "images/text-to-render"
	case FeatureEnhance:
		return "images/enhance-details"
	default:
		return "images"
	}
}

func recordType(feature Feature) string {
	switch feature {
	case FeatureSketch:
		return "sketch-to-image"
	case FeatureMoodboard:
		return "moodboard"
	case FeatureText:
		return "text-to-image"
	case FeatureEnhance:
		return "enhanced-detail"
	default:
		return string(feature)
	}
}

// User-facing prefix every aborting error is wrapped with.
func failurePrefix(feature Feature) string {
	switch feature {
	case FeatureSketch:
		return "Sketch rendering processing failed"
	case FeatureMoodboard:
		return "Moodboard rendering processing failed"
	case FeatureText:
		return "Text to image processing failed"
	case FeatureEnhance:
		return "Detail enhancement processing failed"
	default:
		return "Rendering processing failed"
	}
}
