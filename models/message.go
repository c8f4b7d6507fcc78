package models

// Message types used across chat bubbles.
const (
	MessageTypeConceptSection   = "concept_section"
	MessageTypeButtons          = "buttons"
	MessageTypeQuestion         = "question"
	MessageTypeFeedback         = "feedback"
	MessageTypeResponse         = "response"
	MessageTypeTransition       = "transition"
	MessageTypeQAResponse       = "qa_response"
	MessageTypeCustomResponse   = "custom_response"
	MessageTypeMasteryButtons   = "mastery_buttons"
	MessageTypeAdditionalCorrect = "additional_correct"
	MessageTypeMasteryFeedback  = "mastery_feedback"
)

// Message formats for a response payload.
const (
	MessageFormatSingle          = "single"
	MessageFormatMultipleBubbles = "multiple_bubbles"
)

// Message is one discrete chat bubble within a response.
type Message struct {
	AssistantMessage string   `json:"assistant_message"`
	MessageType      string   `json:"message_type"`
	Buttons          []Button `json:"buttons,omitempty"`
	Section          string   `json:"section,omitempty"`
}

// Button is one interactive option attached to a buttons bubble.
type Button struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

// RevisionResult is the transport-agnostic outcome of one state machine pass.
type RevisionResult struct {
	Messages          []Message `json:"messages"`
	MessageFormat     string    `json:"message_format"`
	IsSessionComplete bool      `json:"is_session_complete"`
	ConversationCount int       `json:"conversation_count"`
	CurrentStage      string    `json:"current_stage"`
	CurrentConcept    string    `json:"current_concept,omitempty"`
}
