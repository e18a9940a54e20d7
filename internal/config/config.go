package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration values.
type Config struct {
	Port        string
	DatabaseURL string
	Blob        BlobConfig
	Gemini      GeminiConfig
	Replicate   ReplicateConfig
	Vertex      VertexConfig
	Suggest     SuggestConfig

	// TextProvider selects the text-to-render backend: gemini, replicate or
	// imagen.
	TextProvider string

	// AdapterTimeout bounds each inference call.
	AdapterTimeout time.Duration
}

// BlobConfig describes where generated and uploaded images are hosted. When
// Bucket is empty, a local directory store is used instead of S3.
type BlobConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicURL       string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
	LocalDir        string
}

// GeminiConfig configures the Gemini image model.
type GeminiConfig struct {
	APIKey     string
	ImageModel string
}

// ReplicateConfig configures the Replicate predictions API.
type ReplicateConfig struct {
	APIToken        string
	BaseURL         string
	TextModel       string
	UpscalerVersion string
}

// VertexConfig configures Vertex AI Imagen.
type VertexConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
}

// SuggestConfig configures the style suggestion chat model.
type SuggestConfig struct {
	Provider string // gemini or openai
	APIKey   string
	Model    string
}

// FromEnv loads configuration from the environment, reading a .env file first
// when one exists, and applies defaults.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Blob: BlobConfig{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          os.Getenv("S3_REGION"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			PublicURL:       os.Getenv("S3_PUBLIC_URL"),
			ForcePathStyle:  getenvBool("S3_FORCE_PATH_STYLE", false),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			LocalDir:        getenv("LOCAL_STORAGE_DIR", "data/uploads"),
		},
		Gemini: GeminiConfig{
			APIKey:     os.Getenv("GEMINI_API_KEY"),
			ImageModel: os.Getenv("GEMINI_IMAGE_MODEL"),
		},
		Replicate: ReplicateConfig{
			APIToken:        os.Getenv("REPLICATE_API_TOKEN"),
			BaseURL:         os.Getenv("REPLICATE_BASE_URL"),
			TextModel:       os.Getenv("REPLICATE_TEXT_MODEL"),
			UpscalerVersion: os.Getenv("REPLICATE_UPSCALER_VERSION"),
		},
		Vertex: VertexConfig{
			ProjectID:          os.Getenv("VERTEX_PROJECT_ID"),
			Location:           getenv("VERTEX_LOCATION", "us-central1"),
			Model:              getenv("VERTEX_MODEL", "imagegeneration@006"),
			APIKey:             os.Getenv("VERTEX_API_KEY"),
			ServiceAccount:     os.Getenv("VERTEX_SERVICE_ACCOUNT"),
			ServiceAccountJSON: os.Getenv("VERTEX_SERVICE_ACCOUNT_JSON"),
		},
		Suggest: SuggestConfig{
			Provider: getenv("SUGGEST_PROVIDER", "gemini"),
			APIKey:   os.Getenv("SUGGEST_API_KEY"),
			Model:    os.Getenv("SUGGEST_MODEL"),
		},
		TextProvider:   getenv("TEXT_PROVIDER", "gemini"),
		AdapterTimeout: time.Duration(getenvInt("ADAPTER_TIMEOUT_SECONDS", 120)) * time.Second,
	}

	if cfg.Suggest.APIKey == "" && cfg.Suggest.Provider == "gemini" {
		cfg.Suggest.APIKey = cfg.Gemini.APIKey
	}

	if cfg.Port == "" {
		log.Fatal("APP_PORT cannot be empty")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getenvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}

	return parsed
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}

	return parsed
}
