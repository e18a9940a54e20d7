package prompts

import (
	"fmt"
	"strings"
)

// Parameter values the UI offers. Aspect ratio and size are validated against
// each other at request time; style stays free text, this list only seeds the
// picker and the suggestion flow.
var (
	AspectRatios = []string{"16:9", "1:1", "4:3", "3:4", "9:16", "2:1", "1:2"}
	OutputSizes  = []string{"1024x1024", "1920x1080", "1080x1920", "1024x768", "768x1024", "512x512"}
	ArchitecturalStyles = []string{
		"Modern", "Minimalist", "Brutalist", "Contemporary", "Industrial",
		"Scandinavian", "Bohemian", "Art Deco", "Victorian", "Gothic",
		"Futuristic", "Postmodern", "Neoclassical", "Deconstructivist", "Organic",
	}
)

// Sketch builds the instruction sent alongside a sketch image.
func Sketch(aspectRatio string, width, height int) string {
	return fmt.Sprintf(
		"Generate a realistic rendered image from this sketch, with aspect ratio %s and output size %dx%d.",
		aspectRatio, width, height)
}

// Moodboard builds the instruction sent alongside the two moodboard images.
func Moodboard(style, aspectRatio string, width, height int) string {
	var b strings.Builder
	b.WriteString("Merge the two images provided into a new realistic architectural image, ")
	b.WriteString("considering how their elements combine.")
	if style != "" {
		fmt.Fprintf(&b, " Apply the %s architectural style.", style)
	}
	if aspectRatio != "" {
		fmt.Fprintf(&b, " Aspect ratio: %s.", aspectRatio)
	}
	if width > 0 && height > 0 {
		fmt.Fprintf(&b, " Output size: %dx%d.", width, height)
	}
	return b.String()
}

// Text builds the text-to-render prompt from the user's description and the
// optional parameters.
func Text(description, aspectRatio string, width, height int, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate an image based on the following description: %s.", strings.TrimSpace(description))
	if aspectRatio != "" {
		fmt.Fprintf(&b, " Aspect ratio: %s.", aspectRatio)
	}
	if width > 0 && height > 0 {
		fmt.Fprintf(&b, " Output size: %dx%d.", width, height)
	}
	if style != "" {
		fmt.Fprintf(&b, " Architectural style: %s.", style)
	}
	return b.String()
}

// Enhance builds the upscale instruction; extra carries optional user notes.
func Enhance(extra string) string {
	prompt := "Enhance the details of this image while preserving its content and composition."
	if trimmed := strings.TrimSpace(extra); trimmed != "" {
		prompt = fmt.Sprintf("%s %s", prompt, trimmed)
	}
	return prompt
}

// Summary returns the condensed prompt stored with a generation record, so the
// gallery can show what produced the image without keeping full payloads.
func Summary(feature, prompt, style, aspectRatio string, width, height int) string {
	switch feature {
	case "sketch":
		return fmt.Sprintf("Sketch input (aspect ratio: %s, size: %dx%d)", aspectRatio, width, height)
	case "moodboard":
		return fmt.Sprintf("Moodboard (style: %s, aspect ratio: %s, size: %dx%d)", style, aspectRatio, width, height)
	case "enhance":
		if strings.TrimSpace(prompt) != "" {
			return fmt.Sprintf("Detail enhancement (%s)", strings.TrimSpace(prompt))
		}
		return "Detail enhancement"
	default:
		return strings.TrimSpace(prompt)
	}
}
