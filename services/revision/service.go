// Package revision implements the conversation state machine that drives a
// tutoring session: it presents concepts, quizzes the student, tracks
// mastery, and advances through a topic's concept chunks to a final summary.
package revision

import (
	"fmt"
	"log"
	"strings"
	"time"

	"tutor/db"
	"tutor/models"
	"tutor/services/generation"
)

const defaultRequiredCorrectAnswers = 2

// Stage labels recorded on history turns and reported on responses.
const (
	stageExplain             = "explain"
	stageUserInput           = "user_input"
	stageAck                 = "ack"
	stageQA                  = "qa"
	stageCustomInput         = "custom_input"
	stageButtonResponse      = "button_response"
	stageQuizQuestion        = "quiz_question"
	stageAdditionalQuestion  = "additional_question"
	stageNextQuestion        = "next_question"
	stageWrongAnswerFeedback = "wrong_answer_feedback"
	stageConceptMastered     = "concept_mastered"
	stageAdditionalCorrect   = "additional_correct"
	stageConceptTransition   = "concept_transition"
	stageCompleted           = "completed"
)

// node identifies one state of the dispatch graph.
type node int

const (
	nodeTerminal node = iota
	nodePresentConcept
	nodeHandleInput
	nodeDetectIntent
	nodeHandleAck
	nodeHandleQA
	nodeHandleCustom
	nodeHandleButton
	nodeEvaluateAnswer
	nodeConclusion
)

// ContentSource resolves a topic into its ordered concept chunks. An empty
// result is a valid "no content" case, not an error.
type ContentSource interface {
	GetConceptChunks(topic string) ([]models.ConceptChunk, error)
}

// Config carries the tunable parameters of the state machine.
type Config struct {
	// RequiredCorrectAnswers is the per-concept mastery threshold.
	// Zero or negative selects the default of 2.
	RequiredCorrectAnswers int
}

// Service is the conversation state machine. One Start or Handle call runs
// synchronously start to finish; callers must serialize calls that share a
// session id.
type Service struct {
	sessions db.SessionRepository
	content  ContentSource
	gen      generation.Generator
	required int
}

func NewService(sessions db.SessionRepository, content ContentSource, gen generation.Generator, cfg Config) *Service {
	required := cfg.RequiredCorrectAnswers
	if required <= 0 {
		required = defaultRequiredCorrectAnswers
	}
	return &Service{
		sessions: sessions,
		content:  content,
		gen:      gen,
		required: required,
	}
}

// Start creates or resumes a session for a topic and presents the first
// concept. Starting an already-complete session returns the completion
// summary and leaves the conversation history untouched.
func (s *Service) Start(topic, studentID, sessionID string) (*models.RevisionResult, error) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	if session == nil {
		session = &models.Session{
			SessionID:              sessionID,
			StudentID:              studentID,
			Topic:                  topic,
			StartedAt:              time.Now().UTC(),
			RequiredCorrectAnswers: s.required,
		}
		log.Printf("[INFO] Created revision session %s for student %s on topic '%s'", sessionID, studentID, topic)
	}

	if session.IsComplete {
		return s.run(session, nodeConclusion)
	}

	chunks, err := s.content.GetConceptChunks(topic)
	if err != nil {
		return nil, fmt.Errorf("failed to load concept chunks for topic '%s': %w", topic, err)
	}
	session.ConceptChunks = chunks
	session.CurrentChunkIndex = 0

	return s.run(session, nodePresentConcept)
}

// Handle processes one user message against an existing session. An unknown
// session id yields a terminal informative response and creates nothing.
func (s *Service) Handle(sessionID, userText string) (*models.RevisionResult, error) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	if session == nil {
		log.Printf("[WARN] Revision session %s not found", sessionID)
		return &models.RevisionResult{
			Messages: []models.Message{{
				AssistantMessage: "Session not found. Start a new revision session.",
				MessageType:      models.MessageTypeResponse,
			}},
			MessageFormat:     models.MessageFormatSingle,
			IsSessionComplete: true,
		}, nil
	}

	session.UserMessage = userText

	return s.run(session, nodeHandleInput)
}

// GetSession returns the stored session record, or nil when unknown.
func (s *Service) GetSession(sessionID string) (*models.Session, error) {
	return s.sessions.GetSession(sessionID)
}

// run executes the dispatch loop from entry until a terminal node, then
// persists the session. Messages accumulate across nodes so a transition
// bubble emitted by one node precedes the next node's output.
func (s *Service) run(session *models.Session, entry node) (*models.RevisionResult, error) {
	result := &models.RevisionResult{}

	for current := entry; current != nodeTerminal; {
		current = s.dispatch(session, result, current)
	}

	session.CurrentStage = result.CurrentStage
	session.IsComplete = result.IsSessionComplete || session.IsComplete
	result.ConversationCount = session.ConversationCount
	result.CurrentConcept = session.CurrentQuestionConcept

	if err := s.sessions.SaveSession(session); err != nil {
		return nil, fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}

	return result, nil
}

func (s *Service) dispatch(session *models.Session, result *models.RevisionResult, current node) node {
	switch current {
	case nodePresentConcept:
		return s.presentConcept(session, result)
	case nodeHandleInput:
		return s.handleInput(session)
	case nodeDetectIntent:
		return s.detectIntent(session)
	case nodeHandleAck:
		return s.handleAck(session, result)
	case nodeHandleQA:
		return s.handleQA(session, result)
	case nodeHandleCustom:
		return s.handleCustom(session, result)
	case nodeHandleButton:
		return s.handleButton(session, result)
	case nodeEvaluateAnswer:
		return s.evaluateAnswer(session, result)
	case nodeConclusion:
		return s.conclusion(session, result)
	default:
		return nodeTerminal
	}
}

// handleInput records the user's turn, then routes on the session's state.
func (s *Service) handleInput(session *models.Session) node {
	session.ConversationHistory = append(session.ConversationHistory, models.ConversationTurn{
		Turn:           session.ConversationCount + 1,
		UserMessage:    session.UserMessage,
		Stage:          stageUserInput,
		Timestamp:      time.Now().UTC(),
		ConceptCovered: session.CurrentQuestionConcept,
	})
	session.ConversationCount++

	switch {
	case session.IsComplete:
		return nodeConclusion
	case session.ExpectingButtonAction:
		return nodeHandleButton
	case session.ExpectingAnswer:
		return nodeEvaluateAnswer
	default:
		return nodeDetectIntent
	}
}

func (s *Service) detectIntent(session *models.Session) node {
	intent, err := s.gen.ClassifyIntent(session.UserMessage, session.CurrentQuestionConcept, s.formatHistory(session))
	if err != nil {
		log.Printf("[WARN] Intent classification failed, treating input as an answer: %v", err)
		intent = generation.IntentProvidingAnswer
	}

	switch intent {
	case generation.IntentAcknowledgement:
		return nodeHandleAck
	case generation.IntentAskingQuestion:
		return nodeHandleQA
	default:
		return nodeHandleCustom
	}
}

// recordAssistantTurns appends one history turn per emitted bubble and
// advances the conversation count by the number of bubbles.
func (s *Service) recordAssistantTurns(session *models.Session, messages []models.Message, stage, concept string) {
	for i, message := range messages {
		session.ConversationHistory = append(session.ConversationHistory, models.ConversationTurn{
			Turn:             session.ConversationCount + 1 + i,
			AssistantMessage: message.AssistantMessage,
			Stage:            stage,
			Timestamp:        time.Now().UTC(),
			ConceptCovered:   concept,
			MessageType:      message.MessageType,
			Buttons:          message.Buttons,
		})
	}
	session.ConversationCount += len(messages)
}

// formatHistory renders the most recent turns latest-first for prompts.
func (s *Service) formatHistory(session *models.Session) string {
	const limit = 10

	history := session.ConversationHistory
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	var lines []string
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		lines = append(lines, fmt.Sprintf("[%d] user: %s | assistant: %s",
			len(history)-1-i, turn.UserMessage, turn.AssistantMessage))
	}

	return strings.Join(lines, "\n")
}

// currentChunk returns the chunk under the cursor. The title falls back to
// the chunk number when a subtopic has no heading of its own.
func currentChunk(session *models.Session) (title, content string, ok bool) {
	if session.CurrentChunkIndex >= len(session.ConceptChunks) {
		return "", "", false
	}

	chunk := session.ConceptChunks[session.CurrentChunkIndex]
	title = chunk.Title
	if title == "" {
		title = fmt.Sprintf("Concept %d", chunk.Number)
	}
	return title, chunk.Content, true
}
