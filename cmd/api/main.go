package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"nirmanai/internal/blobstore"
	"nirmanai/internal/config"
	"nirmanai/internal/events"
	"nirmanai/internal/llm"
	"nirmanai/internal/metastore"
	"nirmanai/internal/providers"
	"nirmanai/internal/render"
	"nirmanai/internal/server"
	"nirmanai/internal/suggest"
)

func main() {
	cfg := config.FromEnv()

	ctx := context.Background()
	meta, err := metastore.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init metadata store: %v", err)
	}
	defer meta.Close()

	var blobs blobstore.Store
	var staticFS http.Handler
	if cfg.Blob.Bucket != "" && cfg.Blob.Region != "" {
		blobs, err = blobstore.NewS3Store(ctx, blobstore.Config{
			Bucket:          cfg.Blob.Bucket,
			Region:          cfg.Blob.Region,
			Endpoint:        cfg.Blob.Endpoint,
			PublicURL:       cfg.Blob.PublicURL,
			ForcePathStyle:  cfg.Blob.ForcePathStyle,
			AccessKeyID:     cfg.Blob.AccessKeyID,
			SecretAccessKey: cfg.Blob.SecretAccessKey,
		})
		if err != nil {
			log.Fatalf("failed to init s3 blob store: %v", err)
		}
		staticFS = http.FileServer(http.Dir("web"))
	} else {
		local, err := blobstore.NewLocalStore(cfg.Blob.LocalDir, "http://localhost:"+cfg.Port+"/files")
		if err != nil {
			log.Fatalf("failed to init local blob store: %v", err)
		}
		blobs = local
		log.Println("blob store: using local directory (S3 config missing)")

		mux := http.NewServeMux()
		mux.Handle("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(local.BaseDir))))
		mux.Handle("/", http.FileServer(http.Dir("web")))
		staticFS = mux
	}

	eventBroker := events.NewBroker()

	pipeline := &render.Pipeline{
		Blobs:          blobs,
		Meta:           meta,
		Adapters:       buildAdapters(cfg),
		Events:         eventBroker,
		AdapterTimeout: cfg.AdapterTimeout,
	}

	var advisor *suggest.Advisor
	if client := buildSuggestClient(cfg.Suggest); client != nil {
		advisor = suggest.NewAdvisor(client, meta)
		log.Println("style advisor ready:", cfg.Suggest.Provider)
	} else {
		log.Println("style advisor disabled (no API key)")
	}

	handler := server.Handler{
		Pipeline: pipeline,
		Meta:     meta,
		Advisor:  advisor,
		Events:   eventBroker,
	}

	srv := server.New(cfg.Port, handler, staticFS)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("shutting down server...")
		if err := srv.Close(); err != nil {
			log.Printf("server close error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

// buildAdapters selects one inference backend per feature. Gemini covers the
// image-conditioned features; the enhance feature always goes through the
// Replicate upscaler.
func buildAdapters(cfg config.Config) map[render.Feature]render.Adapter {
	adapters := make(map[render.Feature]render.Adapter)

	if cfg.Gemini.APIKey != "" {
		gemini := providers.NewGemini(cfg.Gemini.APIKey, cfg.Gemini.ImageModel)
		adapters[render.FeatureSketch] = gemini
		adapters[render.FeatureMoodboard] = gemini
		adapters[render.FeatureText] = gemini
		log.Println("render backend: gemini")
	} else if cfg.Vertex.ProjectID != "" {
		imagen := providers.NewVertexImagen(providers.VertexImagenConfig{
			ProjectID:          cfg.Vertex.ProjectID,
			Location:           cfg.Vertex.Location,
			Model:              cfg.Vertex.Model,
			APIKey:             cfg.Vertex.APIKey,
			ServiceAccount:     cfg.Vertex.ServiceAccount,
			ServiceAccountJSON: cfg.Vertex.ServiceAccountJSON,
		})
		adapters[render.FeatureSketch] = imagen
		adapters[render.FeatureMoodboard] = imagen
		adapters[render.FeatureText] = imagen
		log.Println("render backend: vertex imagen")
	}

	if cfg.Replicate.APIToken != "" {
		replicate := providers.NewReplicateClient(cfg.Replicate.APIToken, cfg.Replicate.BaseURL)
		adapters[render.FeatureEnhance] = providers.NewReplicateUpscaler(replicate, cfg.Replicate.UpscalerVersion)
		if strings.EqualFold(cfg.TextProvider, "replicate") {
			adapters[render.FeatureText] = providers.NewReplicateTextRenderer(replicate, cfg.Replicate.TextModel)
			log.Println("text-to-render backend: replicate")
		}
	}

	if len(adapters) == 0 {
		log.Println("warning: no inference backends configured; render calls will fail")
	}
	return adapters
}

func buildSuggestClient(cfg config.SuggestConfig) llm.Client {
	if cfg.APIKey == "" {
		return nil
	}
	if strings.EqualFold(cfg.Provider, "openai") {
		return llm.NewOpenAIClient(cfg.APIKey, cfg.Model)
	}
	return llm.NewGeminiClient(cfg.APIKey, cfg.Model, 0, nil)
}
