package metastore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record types written for each generation feature.
const (
	TypeTextToImage    = "text-to-image"
	TypeSketchToImage  = "sketch-to-image"
	TypeMoodboard      = "moodboard"
	TypeEnhancedDetail = "enhanced-detail"
)

// GeneratedImage is the provenance record written once per successful generation.
// Records are append-only; nothing updates or deletes them.
type GeneratedImage struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	Type              string         `json:"type"`
	GeneratedImageURL string         `json:"generated_image_url"`
	OriginalImageURL  string         `json:"original_image_url,omitempty"`
	Prompt            string         `json:"prompt,omitempty"`
	Parameters        map[string]any `json:"parameters,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// MoodboardProject groups the inputs and output of one moodboard render.
type MoodboardProject struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	InputImageURLs    []string       `json:"input_image_urls"`
	GeneratedImageURL string         `json:"generated_image_url,omitempty"`
	Parameters        map[string]any `json:"parameters,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Store defines the persistence behaviors the generation pipeline relies on.
// Listings are always newest-first.
type Store interface {
	AddGeneratedImage(ctx context.Context, record GeneratedImage) (string, error)
	ListGeneratedImages(ctx context.Context, userID string) ([]GeneratedImage, error)
	AddMoodboardProject(ctx context.Context, project MoodboardProject) (string, error)
	ListMoodboardProjects(ctx context.Context, userID string) ([]MoodboardProject, error)
	Close()
}

// NewStore selects a backing store based on whether a database URL is provided.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewInMemoryStore(), nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS generated_images (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        type TEXT NOT NULL,
        generated_image_url TEXT NOT NULL,
        original_image_url TEXT,
        prompt TEXT,
        parameters JSONB DEFAULT '{}'::jsonb,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("create generated_images table: %w", err)
	}

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS moodboard_projects (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        description TEXT,
        input_image_urls TEXT[],
        generated_image_url TEXT,
        parameters JSONB DEFAULT '{}'::jsonb,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("create moodboard_projects table: %w", err)
	}

	var schemaIndexes = []string{
		`CREATE INDEX IF NOT EXISTS generated_images_user_created_idx ON generated_images (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS moodboard_projects_user_created_idx ON moodboard_projects (user_id, created_at DESC)`,
	}
	for _, stmt := range schemaIndexes {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
