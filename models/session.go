package models

import "time"

// Session is the durable per-student-per-topic record. It is owned
// exclusively by the state machine while a call is in flight and persisted
// as a single document between calls.
type Session struct {
	SessionID string    `json:"session_id" db:"session_id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Topic     string    `json:"topic" db:"topic"`
	StartedAt time.Time `json:"started_at" db:"started_at"`

	ConversationCount int    `json:"conversation_count"`
	IsComplete        bool   `json:"is_complete"`
	CurrentStage      string `json:"current_stage"`

	ConceptChunks     []ConceptChunk `json:"concept_chunks"`
	CurrentChunkIndex int            `json:"current_chunk_index"`

	CurrentConceptCorrectAnswers int      `json:"current_concept_correct_answers"`
	RequiredCorrectAnswers       int      `json:"required_correct_answers"`
	CurrentConceptQuestionsAsked []string `json:"current_concept_questions_asked"`
	CurrentExpectedKeywords      []string `json:"current_expected_keywords"`
	CurrentQuestion              string   `json:"current_question"`
	ConceptMastered              bool     `json:"concept_mastered"`
	HasUsedLearningSupport       bool     `json:"has_used_learning_support"`

	// Routing flags. Never both true at the same time.
	ExpectingAnswer       bool `json:"expecting_answer"`
	ExpectingButtonAction bool `json:"expecting_button_action"`

	CurrentQuestionConcept string `json:"current_question_concept"`
	CurrentContent         string `json:"current_content"`

	ConversationHistory []ConversationTurn `json:"conversation_history"`
	ConceptsLearned     []string           `json:"concepts_learned"`

	// Input for the current call only; never persisted.
	UserMessage string `json:"-"`
}

// ConversationTurn is one append-only history entry. Turn numbers are
// strictly increasing and stay aligned with Session.ConversationCount.
type ConversationTurn struct {
	Turn             int       `json:"turn"`
	UserMessage      string    `json:"user_message,omitempty"`
	AssistantMessage string    `json:"assistant_message,omitempty"`
	Stage            string    `json:"stage"`
	Timestamp        time.Time `json:"timestamp"`
	ConceptCovered   string    `json:"concept_covered,omitempty"`
	MessageType      string    `json:"message_type,omitempty"`
	Buttons          []Button  `json:"buttons,omitempty"`
}

// ConceptChunk is one ordered teaching step of a topic. Chunks are fetched
// once at session start and never mutated afterwards.
type ConceptChunk struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
