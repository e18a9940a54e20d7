package metastore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe store used when a database is not configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	images   []GeneratedImage
	projects []MoodboardProject
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		images:   make([]GeneratedImage, 0),
		projects: make([]MoodboardProject, 0),
	}
}

// AddGeneratedImage prepends a record so listings stay newest-first.
func (s *InMemoryStore) AddGeneratedImage(_ context.Context, record GeneratedImage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now()
	if record.Parameters == nil {
		record.Parameters = map[string]any{}
	}

	s.images = append([]GeneratedImage{record}, s.images...)
	if len(s.images) > listLimit {
		s.images = s.images[:listLimit]
	}
	return record.ID, nil
}

// ListGeneratedImages returns a snapshot of the user's records.
func (s *InMemoryStore) ListGeneratedImages(_ context.Context, userID string) ([]GeneratedImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []GeneratedImage{}
	for _, item := range s.images {
		if item.UserID == userID {
			records = append(records, item)
		}
	}
	return records, nil
}

// AddMoodboardProject prepends a moodboard project.
func (s *InMemoryStore) AddMoodboardProject(_ context.Context, project MoodboardProject) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.CreatedAt = time.Now()
	if project.InputImageURLs == nil {
		project.InputImageURLs = []string{}
	}
	if project.Parameters == nil {
		project.Parameters = map[string]any{}
	}

	s.projects = append([]MoodboardProject{project}, s.projects...)
	if len(s.projects) > listLimit {
		s.projects = s.projects[:listLimit]
	}
	return project.ID, nil
}

// ListMoodboardProjects returns a snapshot of the user's moodboard projects.
func (s *InMemoryStore) ListMoodboardProjects(_ context.Context, userID string) ([]MoodboardProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := []MoodboardProject{}
	for _, item := range s.projects {
		if item.UserID == userID {
			projects = append(projects, item)
		}
	}
	return projects, nil
}

// Close satisfies the Store interface.
func (s *InMemoryStore) Close() {}
