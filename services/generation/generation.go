// Package generation wraps the text-generation provider behind a fixed
// interface. Every operation is pure from the caller's perspective and may
// fail; callers substitute their own deterministic fallbacks.
package generation

import "tutor/models"

type Intent string

const (
	IntentAcknowledgement Intent = "ACKNOWLEDGEMENT"
	IntentAskingQuestion  Intent = "ASKING_QUESTION"
	IntentProvidingAnswer Intent = "PROVIDING_ANSWER"
)

type Relevance string

const (
	RelevanceRelevant   Relevance = "RELEVANT"
	RelevanceIrrelevant Relevance = "IRRELEVANT"
)

type Verdict string

const (
	VerdictCorrect Verdict = "CORRECT"
	VerdictPartial Verdict = "PARTIAL"
	VerdictWrong   Verdict = "WRONG"
)

// Evaluation is the structured outcome of grading one free-text answer.
type Evaluation struct {
	Verdict       Verdict `json:"verdict"`
	Justification string  `json:"justification"`
	Correction    string  `json:"correction"`
}

// EvaluationInput carries the full grading context for one answer.
type EvaluationInput struct {
	UserAnswer       string
	ExpectedKeywords []string
	Title            string
	Content          string
	CheckQuestion    string
	History          string
}

// Generator is the black-box text-generation service used by the state
// machine. Implementations are injected at construction; there is no
// package-level client.
type Generator interface {
	// Explain produces the three-bubble structured explanation of a concept
	// (definition, technical detail, examples).
	Explain(title, content, history string) ([]models.Message, error)
	ExampleText(title, content, history string) (string, error)
	ReExplainSteps(title, content, history string, steps int) ([]string, error)
	CheckQuestion(title, content, history string) (string, error)
	ExtractKeywords(title, content, question string) ([]string, error)
	EvaluateAnswer(input EvaluationInput) (*Evaluation, error)
	AnswerQuestion(question, concept, content, history string) (string, error)
	ClassifyIntent(input, concept, history string) (Intent, error)
	ClassifyRelevance(input, concept, content string) (Relevance, error)
	Summarize(learned, total int, history string) (string, error)
}
