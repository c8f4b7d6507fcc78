package services

import (
	"fmt"
	"testing"

	"tutor/models"
)

type fakeTopicRepo struct {
	topics    []string
	subtopics map[string][]models.ConceptChunk
	failing   bool
}

func (f *fakeTopicRepo) GetAvailableTopics() ([]string, error) {
	if f.failing {
		return nil, fmt.Errorf("connection refused")
	}
	return f.topics, nil
}

func (f *fakeTopicRepo) GetTopicSubtopics(title string) ([]models.ConceptChunk, error) {
	if f.failing {
		return nil, fmt.Errorf("connection refused")
	}
	return f.subtopics[title], nil
}

type fakeChunkIndex struct {
	chunks []models.ConceptChunk
}

func (f *fakeChunkIndex) QueryTopicChunks(topic string, limit int) ([]models.ConceptChunk, error) {
	return f.chunks, nil
}

func TestGetConceptChunksExactTitle(t *testing.T) {
	repo := &fakeTopicRepo{
		topics: []string{"Memory Management"},
		subtopics: map[string][]models.ConceptChunk{
			"Memory Management": {
				{Number: 1, Title: "Stack", Content: "Stack allocation."},
				{Number: 2, Title: "Heap", Content: "Heap allocation."},
			},
		},
	}
	service := NewContentService(repo, nil)

	chunks, err := service.GetConceptChunks("Memory Management")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Title != "Stack" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}
}

func TestGetConceptChunksStripsUnitPrefix(t *testing.T) {
	repo := &fakeTopicRepo{
		topics: []string{"Memory Management"},
		subtopics: map[string][]models.ConceptChunk{
			"Memory Management": {
				{Number: 1, Title: "Stack", Content: "Stack allocation."},
			},
		},
	}
	service := NewContentService(repo, nil)

	chunks, err := service.GetConceptChunks("Unit 3: Memory Management")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestGetConceptChunksFuzzyTopicMatch(t *testing.T) {
	repo := &fakeTopicRepo{
		topics: []string{"Memory Management", "Process Scheduling"},
		subtopics: map[string][]models.ConceptChunk{
			"Memory Management": {
				{Number: 1, Title: "Stack", Content: "Stack allocation."},
			},
		},
	}
	service := NewContentService(repo, nil)

	chunks, err := service.GetConceptChunks("memory managment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected fuzzy match to find 1 chunk, got %d", len(chunks))
	}
}

func TestGetConceptChunksIndexFallback(t *testing.T) {
	repo := &fakeTopicRepo{topics: []string{}}
	index := &fakeChunkIndex{
		chunks: []models.ConceptChunk{
			{Number: 1, Title: "Paging", Content: "Pages and frames."},
		},
	}
	service := NewContentService(repo, index)

	chunks, err := service.GetConceptChunks("Virtual Memory")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Title != "Paging" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}
}

func TestGetConceptChunksEmptyIsValid(t *testing.T) {
	repo := &fakeTopicRepo{topics: []string{}}
	service := NewContentService(repo, nil)

	chunks, err := service.GetConceptChunks("Unknown Topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %+v", chunks)
	}
}

func TestGetConceptChunksRepoError(t *testing.T) {
	service := NewContentService(&fakeTopicRepo{failing: true}, nil)

	if _, err := service.GetConceptChunks("Memory Management"); err == nil {
		t.Error("expected error when repository fails")
	}
}
