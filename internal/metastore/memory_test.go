package metastore

import (
	"context"
	"testing"
)

func TestInMemoryStoreScopesByUser(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if _, err := store.AddGeneratedImage(ctx, GeneratedImage{
		UserID:            "u1",
		Type:              TypeSketchToImage,
		GeneratedImageURL: "https://blobstore/users/u1/images/sketch-to-render/a.png",
	}); err != nil {
		t.Fatalf("AddGeneratedImage: %v", err)
	}
	if _, err := store.AddGeneratedImage(ctx, GeneratedImage{
		UserID:            "u2",
		Type:              TypeTextToImage,
		GeneratedImageURL: "https://blobstore/users/u2/images/text-to-render/b.png",
	}); err != nil {
		t.Fatalf("AddGeneratedImage: %v", err)
	}

	records, err := store.ListGeneratedImages(ctx, "u1")
	if err != nil {
		t.Fatalf("ListGeneratedImages: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Type != TypeSketchToImage {
		t.Fatalf("type = %q, want %q", records[0].Type, TypeSketchToImage)
	}
	if records[0].ID == "" || records[0].CreatedAt.IsZero() {
		t.Fatal("expected server-assigned id and timestamp")
	}
}

func TestInMemoryStoreNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	first, _ := store.AddGeneratedImage(ctx, GeneratedImage{UserID: "u1", Type: TypeTextToImage, GeneratedImageURL: "a"})
	second, _ := store.AddGeneratedImage(ctx, GeneratedImage{UserID: "u1", Type: TypeTextToImage, GeneratedImageURL: "b"})

	records, err := store.ListGeneratedImages(ctx, "u1")
	if err != nil {
		t.Fatalf("ListGeneratedImages: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].ID != second || records[1].ID != first {
		t.Fatalf("records not newest-first: %s, %s", records[0].ID, records[1].ID)
	}
}

func TestInMemoryStoreMoodboardProjects(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	id, err := store.AddMoodboardProject(ctx, MoodboardProject{
		UserID:         "u1",
		Name:           "Moodboard render",
		InputImageURLs: []string{"https://blobstore/in1.png", "https://blobstore/in2.png"},
	})
	if err != nil {
		t.Fatalf("AddMoodboardProject: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated project id")
	}

	projects, err := store.ListMoodboardProjects(ctx, "u1")
	if err != nil {
		t.Fatalf("ListMoodboardProjects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("len(projects) = %d, want 1", len(projects))
	}
	if got := len(projects[0].InputImageURLs); got != 2 {
		t.Fatalf("input urls = %d, want 2", got)
	}

	if other, _ := store.ListMoodboardProjects(ctx, "u2"); len(other) != 0 {
		t.Fatalf("expected no projects for other user, got %d", len(other))
	}
}
