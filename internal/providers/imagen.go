package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"nirmanai/internal/render"
)

// VertexImagen renders through Vertex AI Imagen. It serves sketch-to-render
// deployments that prefer Imagen's edit mode over Gemini.
type VertexImagen struct {
	projectID          string
	location           string
	model              string
	apiKey             string
	serviceAccount     string
	serviceAccountJSON string
}

// VertexImagenConfig describes how to connect to Imagen. Exactly one of the
// credential fields is used, in the order JSON, file, API key.
type VertexImagenConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
}

// NewVertexImagen wires a VertexImagen adapter.
func NewVertexImagen(cfg VertexImagenConfig) *VertexImagen {
	return &VertexImagen{
		projectID:          strings.TrimSpace(cfg.ProjectID),
		location:           strings.TrimSpace(cfg.Location),
		model:              strings.TrimSpace(cfg.Model),
		apiKey:             strings.TrimSpace(cfg.APIKey),
		serviceAccount:     strings.TrimSpace(cfg.ServiceAccount),
		serviceAccountJSON: strings.TrimSpace(cfg.ServiceAccountJSON),
	}
}

// Render runs a Predict call and returns the generated image as a data URI.
func (v *VertexImagen) Render(ctx context.Context, req render.AdapterRequest) (render.AdapterOutput, error) {
	if v == nil || v.projectID == "" || v.location == "" || v.model == "" {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "imagen", Err: errors.New("missing project/location/model")}
	}

	fields := map[string]any{"prompt": req.Prompt}
	if len(req.Images) > 0 {
		data, _, err := imageBytes(ctx, req.Images[0])
		if err != nil {
			return render.AdapterOutput{}, &render.InferenceError{Provider: "imagen", Err: err}
		}
		fields["image"] = map[string]any{
			"bytesBase64Encoded": base64.StdEncoding.EncodeToString(data),
		}
	}

	instance, err := structpb.NewValue(fields)
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "imagen", Err: err}
	}

	paramFields := map[string]any{"sampleCount": 1}
	if req.AspectRatio != "" {
		paramFields["aspectRatio"] = req.AspectRatio
	}
	params, err := structpb.NewValue(paramFields)
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "imagen", Err: err}
	}

	endpoint := fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", v.projectID, v.location, v.model)
	options := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", v.location))}
	if v.serviceAccountJSON != "" {
		options = append(options, option.WithCredentialsJSON([]byte(v.serviceAccountJSON)))
	} else if v.serviceAccount != "" {
		options = append(options, option.WithCredentialsFile(v.serviceAccount))
	} else if v.apiKey != "" {
		options = append(options, option.WithAPIKey(v.apiKey))
	}

	client, err := aiplatform.NewPredictionClient(ctx, options...)
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "imagen", Err: fmt.Errorf("prediction client: %w", err)}
	}
	defer client.Close()

	resp, err := client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   endpoint,
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "imagen", Err: fmt.Errorf("predict: %w", err)}
	}
	if len(resp.Predictions) == 0 {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "imagen", Err: errors.New("empty prediction response")}
	}

	pred := resp.Predictions[0].GetStructValue().GetFields()
	encoded := pred["bytesBase64Encoded"]
	if encoded == nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "imagen", Err: errors.New("prediction missing image bytes")}
	}

	mime := "image/png"
	if m := pred["mimeType"]; m != nil && m.GetStringValue() != "" {
		mime = m.GetStringValue()
	}
	return render.AdapterOutput{ImageURL: fmt.Sprintf("data:%s;base64,%s", mime, encoded.GetStringValue())}, nil
}
