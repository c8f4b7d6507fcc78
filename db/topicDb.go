package db

import (
	"database/sql"
	"fmt"

	"tutor/models"

	_ "github.com/lib/pq"
)

type TopicRepository interface {
	GetAvailableTopics() ([]string, error)
	// GetTopicSubtopics returns the ordered teaching chunks for a topic title.
	// An empty slice with a nil error means the topic has no stored content.
	GetTopicSubtopics(title string) ([]models.ConceptChunk, error)
}

type PostgresTopicRepository struct {
	db *sql.DB
}

func NewPostgresTopicRepository(databaseURL string) (*PostgresTopicRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresTopicRepository{db: db}, nil
}

func (r *PostgresTopicRepository) GetAvailableTopics() ([]string, error) {
	query := `
		SELECT title
		FROM tutor.topics
		ORDER BY title`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, title)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over topics: %w", err)
	}

	return topics, nil
}

func (r *PostgresTopicRepository) GetTopicSubtopics(title string) ([]models.ConceptChunk, error) {
	query := `
		SELECT s.subtopic_number, s.subtopic_title, s.content
		FROM tutor.subtopics s
		JOIN tutor.topics t ON t.id = s.topic_id
		WHERE t.title = $1
		ORDER BY s.subtopic_number`

	rows, err := r.db.Query(query, title)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtopics: %w", err)
	}
	defer rows.Close()

	chunks := make([]models.ConceptChunk, 0)
	for rows.Next() {
		var chunk models.ConceptChunk
		if err := rows.Scan(&chunk.Number, &chunk.Title, &chunk.Content); err != nil {
			return nil, fmt.Errorf("failed to scan subtopic: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over subtopics: %w", err)
	}

	return chunks, nil
}

func (r *PostgresTopicRepository) Close() error {
	return r.db.Close()
}
