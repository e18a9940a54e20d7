package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listLimit = 100

// PostgresStore persists generation records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// AddGeneratedImage appends a generation record and returns its ID.
// The creation timestamp is always server-assigned.
func (s *PostgresStore) AddGeneratedImage(ctx context.Context, record GeneratedImage) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	params, err := marshalParams(record.Parameters)
	if err != nil {
		return "", err
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO generated_images (id, user_id, type, generated_image_url, original_image_url, prompt, parameters, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		record.ID, record.UserID, record.Type, record.GeneratedImageURL,
		record.OriginalImageURL, record.Prompt, params); err != nil {
		return "", fmt.Errorf("insert generated image: %w", err)
	}

	return record.ID, nil
}

// ListGeneratedImages returns a user's generation records, newest first.
func (s *PostgresStore) ListGeneratedImages(ctx context.Context, userID string) ([]GeneratedImage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, type, generated_image_url, original_image_url, prompt, parameters, created_at
         FROM generated_images WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("query generated images: %w", err)
	}
	defer rows.Close()

	records := []GeneratedImage{}
	for rows.Next() {
		var (
			item      GeneratedImage
			original  *string
			prompt    *string
			params    []byte
			createdAt time.Time
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.Type, &item.GeneratedImageURL,
			&original, &prompt, &params, &createdAt); err != nil {
			return nil, fmt.Errorf("scan generated image: %w", err)
		}
		if original != nil {
			item.OriginalImageURL = *original
		}
		if prompt != nil {
			item.Prompt = *prompt
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &item.Parameters); err != nil {
				return nil, fmt.Errorf("decode parameters: %w", err)
			}
		}
		item.CreatedAt = createdAt
		records = append(records, item)
	}

	return records, rows.Err()
}

// AddMoodboardProject appends a moodboard project and returns its ID.
func (s *PostgresStore) AddMoodboardProject(ctx context.Context, project MoodboardProject) (string, error) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}

	params, err := marshalParams(project.Parameters)
	if err != nil {
		return "", err
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO moodboard_projects (id, user_id, name, description, input_image_urls, generated_image_url, parameters, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		project.ID, project.UserID, project.Name, project.Description,
		project.InputImageURLs, project.GeneratedImageURL, params); err != nil {
		return "", fmt.Errorf("insert moodboard project: %w", err)
	}

	return project.ID, nil
}

// ListMoodboardProjects returns a user's moodboard projects, newest first.
func (s *PostgresStore) ListMoodboardProjects(ctx context.Context, userID string) ([]MoodboardProject, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, description, input_image_urls, generated_image_url, parameters, created_at
         FROM moodboard_projects WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("query moodboard projects: %w", err)
	}
	defer rows.Close()

	projects := []MoodboardProject{}
	for rows.Next() {
		var (
			item        MoodboardProject
			description *string
			generated   *string
			params      []byte
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &description,
			&item.InputImageURLs, &generated, &params, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moodboard project: %w", err)
		}
		if description != nil {
			item.Description = *description
		}
		if generated != nil {
			item.GeneratedImageURL = *generated
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &item.Parameters); err != nil {
				return nil, fmt.Errorf("decode parameters: %w", err)
			}
		}
		projects = append(projects, item)
	}

	return projects, rows.Err()
}

// Close releases database resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func marshalParams(params map[string]any) ([]byte, error) {
	if params == nil {
		return []byte(`{}`), nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return data, nil
}
