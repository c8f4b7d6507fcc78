package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Parsing of raw generated text into the shapes the state machine consumes.
// Grammar, as instructed in the prompts:
//   - explanations: exactly three sections separated by lines containing only
//     dashes ("---");
//   - evaluations: three lines prefixed VERDICT:, JUSTIFICATION:, CORRECTION:;
//   - keyword lists: a bare JSON string array, optionally fenced.
// Anything that does not match is an error; callers fall back to their
// documented degraded output and never surface the parse failure.

// ParseExplanationSections splits a structured explanation into its three
// sections. Returns an error unless exactly three non-empty sections remain.
func ParseExplanationSections(raw string) ([]string, error) {
	text := stripCodeFence(raw)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty explanation output")
	}

	var sections []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if isSectionDelimiter(line) {
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	if len(sections) != 3 {
		return nil, fmt.Errorf("expected 3 explanation sections, got %d", len(sections))
	}

	return sections, nil
}

func isSectionDelimiter(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 3 {
		return false
	}
	return strings.Count(trimmed, "-") == len(trimmed)
}

// ParseEvaluation extracts the line-prefixed verdict grammar. The verdict
// line is mandatory and must carry one of the three known verdicts; the
// justification and correction lines are optional.
func ParseEvaluation(raw string) (*Evaluation, error) {
	eval := &Evaluation{}
	found := false

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "VERDICT:"):
			value := strings.ToUpper(strings.TrimSpace(trimmed[len("VERDICT:"):]))
			switch Verdict(value) {
			case VerdictCorrect, VerdictPartial, VerdictWrong:
				eval.Verdict = Verdict(value)
				found = true
			default:
				return nil, fmt.Errorf("unknown verdict %q", value)
			}
		case strings.HasPrefix(upper, "JUSTIFICATION:"):
			eval.Justification = strings.TrimSpace(trimmed[len("JUSTIFICATION:"):])
		case strings.HasPrefix(upper, "CORRECTION:"):
			eval.Correction = strings.TrimSpace(trimmed[len("CORRECTION:"):])
		}
	}

	if !found {
		return nil, fmt.Errorf("no verdict line in evaluation output")
	}

	if eval.Correction == "" {
		eval.Correction = eval.Justification
	}

	return eval, nil
}

// ParseKeywordList decodes a JSON string array of expected keywords,
// lowercased and stripped of empties.
func ParseKeywordList(raw string) ([]string, error) {
	text := stripCodeFence(raw)

	var keywords []string
	if err := json.Unmarshal([]byte(text), &keywords); err != nil {
		return nil, fmt.Errorf("keyword output is not a JSON string array: %w", err)
	}

	keywords = lo.FilterMap(keywords, func(kw string, _ int) (string, bool) {
		cleaned := strings.ToLower(strings.TrimSpace(kw))
		return cleaned, cleaned != ""
	})
	if len(keywords) == 0 {
		return nil, fmt.Errorf("keyword output contained no usable entries")
	}

	return keywords, nil
}

// ParseNumberedSteps keeps the non-empty lines of a step-by-step
// re-explanation, capped at the requested count. If the model ignored the
// line structure entirely, sentences are numbered as a fallback.
func ParseNumberedSteps(raw string, steps int) []string {
	lines := lo.FilterMap(strings.Split(raw, "\n"), func(line string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(line)
		return trimmed, trimmed != ""
	})

	if len(lines) == 0 {
		parts := strings.Split(strings.ReplaceAll(raw, "\n", " "), ".")
		for i, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" && len(lines) < steps {
				lines = append(lines, fmt.Sprintf("%d. %s.", i+1, trimmed))
			}
		}
	}

	if len(lines) > steps {
		lines = lines[:steps]
	}

	return lines
}

// ParseIntent maps a one-word classification answer onto an Intent,
// defaulting to PROVIDING_ANSWER when the output is unclear.
func ParseIntent(raw string) Intent {
	classification := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(classification, string(IntentAcknowledgement)):
		return IntentAcknowledgement
	case strings.Contains(classification, string(IntentAskingQuestion)):
		return IntentAskingQuestion
	default:
		return IntentProvidingAnswer
	}
}

// ParseRelevance maps a one-word classification answer onto a Relevance.
// IRRELEVANT is checked first since "IRRELEVANT" contains "RELEVANT".
func ParseRelevance(raw string) (Relevance, error) {
	classification := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(classification, string(RelevanceIrrelevant)):
		return RelevanceIrrelevant, nil
	case strings.Contains(classification, string(RelevanceRelevant)):
		return RelevanceRelevant, nil
	default:
		return "", fmt.Errorf("unrecognized relevance classification %q", strings.TrimSpace(raw))
	}
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
