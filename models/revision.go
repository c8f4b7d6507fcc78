package models

import "time"

type StartRevisionRequest struct {
	Topic     string `json:"topic"`
	StudentID string `json:"student_id"`
	SessionID string `json:"session_id,omitempty"`
}

type ContinueRevisionRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// RevisionResponse is the wire shape of a state machine result. Response is
// a bare string when MessageFormat is "single" and a Message array otherwise,
// matching what existing clients already parse.
type RevisionResponse struct {
	Response          any       `json:"response"`
	MessageFormat     string    `json:"message_format"`
	Topic             string    `json:"topic,omitempty"`
	SessionID         string    `json:"session_id"`
	ConversationCount int       `json:"conversation_count"`
	IsSessionComplete bool      `json:"is_session_complete"`
	CurrentStage      string    `json:"current_stage"`
	CurrentConcept    string    `json:"current_concept,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

type TopicsResponse struct {
	Topics []string `json:"topics"`
}
