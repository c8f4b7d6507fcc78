package revision

import (
	"strings"

	"tutor/models"
)

// Canonical button action tokens. Clients may send either the token itself
// or the button's display text.
const (
	actionMoreExamples       = "more_examples"
	actionReExplain          = "re_explain"
	actionCheckUnderstanding = "check_understanding"
	actionMoreQuestions      = "more_questions"
	actionNextConcept        = "next_concept"
)

var actionPhrases = []struct {
	action string
	phrase string
}{
	{actionMoreExamples, "more examples"},
	{actionReExplain, "re-explain"},
	{actionCheckUnderstanding, "check my understanding"},
	{actionMoreQuestions, "more questions"},
	{actionNextConcept, "next concept"},
}

// matchButtonAction resolves user input to a canonical action token. An
// exact token match wins over phrase containment; unmatched input returns
// an empty string and is treated as free text.
func matchButtonAction(input string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))

	for _, candidate := range actionPhrases {
		if normalized == candidate.action {
			return candidate.action
		}
	}
	for _, candidate := range actionPhrases {
		if strings.Contains(normalized, candidate.phrase) {
			return candidate.action
		}
	}

	return ""
}

// learningButtons are the support options shown while a concept is being
// taught. The quiz entry button appears only after the student has used at
// least one support option.
func learningButtons(hasUsedSupport bool) []models.Button {
	buttons := []models.Button{
		{Text: "I need more examples", Action: actionMoreExamples},
		{Text: "Can you re-explain?", Action: actionReExplain},
	}
	if hasUsedSupport {
		buttons = append(buttons, models.Button{
			Text:   "Let me check my understanding with some Q&A",
			Action: actionCheckUnderstanding,
		})
	}
	return buttons
}

// masteryButtons are the options offered once a concept has been mastered.
func masteryButtons() []models.Button {
	return []models.Button{
		{Text: "Could you provide a few more questions?", Action: actionMoreQuestions},
		{Text: "Can you move to the next concept?", Action: actionNextConcept},
	}
}
