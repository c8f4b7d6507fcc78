package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"tutor/models"

	_ "github.com/lib/pq"
)

type SessionRepository interface {
	// GetSession returns (nil, nil) when no session exists for the id.
	// A missing session is a modeled outcome for the state machine, not an error.
	GetSession(id string) (*models.Session, error)
	SaveSession(session *models.Session) error
}

type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(databaseURL string) (*PostgresSessionRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSessionRepository{db: db}, nil
}

func (r *PostgresSessionRepository) GetSession(id string) (*models.Session, error) {
	query := `
		SELECT data
		FROM tutor.sessions
		WHERE session_id = $1`

	var data []byte
	row := r.db.QueryRow(query, id)

	err := row.Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &models.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}

	return session, nil
}

func (r *PostgresSessionRepository) SaveSession(session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
		INSERT INTO tutor.sessions (session_id, student_id, topic, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

	if _, err := r.db.Exec(query, session.SessionID, session.StudentID, session.Topic, data); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}

	return nil
}

func (r *PostgresSessionRepository) Close() error {
	return r.db.Close()
}
