package services

import (
	"fmt"
	"log"
	"strings"

	"tutor/db"
	"tutor/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

const fallbackChunkLimit = 10

// ChunkIndex is the vector-index fallback for topics without curated
// subtopics in the database.
type ChunkIndex interface {
	QueryTopicChunks(topic string, limit int) ([]models.ConceptChunk, error)
}

// ContentService resolves a requested topic into the ordered concept chunks
// a revision session walks through.
type ContentService struct {
	repo  db.TopicRepository
	index ChunkIndex
}

// NewContentService creates a content service. index may be nil when no
// vector index is configured.
func NewContentService(repo db.TopicRepository, index ChunkIndex) *ContentService {
	return &ContentService{
		repo:  repo,
		index: index,
	}
}

func (s *ContentService) GetAvailableTopics() ([]string, error) {
	topics, err := s.repo.GetAvailableTopics()
	if err != nil {
		return nil, fmt.Errorf("failed to get available topics: %w", err)
	}
	return topics, nil
}

// GetConceptChunks returns the concept chunks for a topic, in subtopic order.
// Topic labels like "Unit 3: Memory Management" are reduced to their title
// before lookup. When the exact title has no subtopics, the closest stored
// topic title is tried, then the vector index. An empty result is valid and
// means the topic has no study material.
func (s *ContentService) GetConceptChunks(topic string) ([]models.ConceptChunk, error) {
	title := cleanTopicTitle(topic)

	chunks, err := s.repo.GetTopicSubtopics(title)
	if err != nil {
		return nil, fmt.Errorf("failed to get subtopics for topic '%s': %w", title, err)
	}
	if len(chunks) > 0 {
		return chunks, nil
	}

	match, err := s.closestTopicTitle(title)
	if err != nil {
		return nil, err
	}
	if match != "" && match != title {
		log.Printf("[INFO] No subtopics for '%s', using closest topic '%s'", title, match)
		chunks, err = s.repo.GetTopicSubtopics(match)
		if err != nil {
			return nil, fmt.Errorf("failed to get subtopics for topic '%s': %w", match, err)
		}
		if len(chunks) > 0 {
			return chunks, nil
		}
	}

	if s.index != nil {
		log.Printf("[INFO] No stored subtopics for '%s', falling back to document index", title)
		chunks, err = s.index.QueryTopicChunks(title, fallbackChunkLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to query document index for topic '%s': %w", title, err)
		}
		return chunks, nil
	}

	return []models.ConceptChunk{}, nil
}

func (s *ContentService) closestTopicTitle(title string) (string, error) {
	topics, err := s.repo.GetAvailableTopics()
	if err != nil {
		return "", fmt.Errorf("failed to get available topics: %w", err)
	}
	if len(topics) == 0 {
		return "", nil
	}

	matches := fuzzy.RankFindNormalizedFold(title, topics)
	if len(matches) == 0 {
		return "", nil
	}

	best := lo.MinBy(matches, func(a, b fuzzy.Rank) bool {
		return a.Distance < b.Distance
	})
	return best.Target, nil
}

// cleanTopicTitle strips unit-style prefixes such as "Unit 3: " so lookups
// use the bare topic title.
func cleanTopicTitle(topic string) string {
	parts := strings.Split(topic, ": ")
	return strings.TrimSpace(parts[len(parts)-1])
}
