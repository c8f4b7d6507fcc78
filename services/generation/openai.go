package generation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tutor/models"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var explanationSectionLabels = []string{"definition", "technical", "examples"}

// OpenAIGenerator implements Generator on top of langchaingo's OpenAI client.
type OpenAIGenerator struct {
	llm llms.Model
}

func NewOpenAIGenerator(apiKey string) (*OpenAIGenerator, error) {
	llm, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return &OpenAIGenerator{llm: llm}, nil
}

func (g *OpenAIGenerator) complete(operation, prompt string, temperature float64) (string, error) {
	ctx := context.Background()

	log.Printf("[INFO] Calling LLM for %s", operation)
	completion, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(temperature))
	if err != nil {
		log.Printf("[ERROR] Failed to generate %s response: %v", operation, err)
		return "", fmt.Errorf("failed to generate %s response: %w", operation, err)
	}

	return strings.TrimSpace(completion), nil
}

func (g *OpenAIGenerator) Explain(title, content, history string) ([]models.Message, error) {
	resp, err := g.complete("explanation", fmt.Sprintf(EXPLAIN_PROMPT, title, content, history), 0.7)
	if err != nil {
		return nil, err
	}

	sections, err := ParseExplanationSections(resp)
	if err != nil {
		return nil, fmt.Errorf("malformed explanation: %w", err)
	}

	messages := make([]models.Message, len(sections))
	for i, section := range sections {
		messages[i] = models.Message{
			AssistantMessage: section,
			MessageType:      models.MessageTypeConceptSection,
			Section:          explanationSectionLabels[i],
		}
	}

	return messages, nil
}

func (g *OpenAIGenerator) ExampleText(title, content, history string) (string, error) {
	return g.complete("examples", fmt.Sprintf(EXAMPLES_PROMPT, title, content, history), 0.7)
}

func (g *OpenAIGenerator) ReExplainSteps(title, content, history string, steps int) ([]string, error) {
	resp, err := g.complete("re-explanation", fmt.Sprintf(RE_EXPLAIN_PROMPT, title, steps, content, history), 0.7)
	if err != nil {
		return nil, err
	}

	lines := ParseNumberedSteps(resp, steps)
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty re-explanation output")
	}

	return lines, nil
}

func (g *OpenAIGenerator) CheckQuestion(title, content, history string) (string, error) {
	resp, err := g.complete("check question", fmt.Sprintf(CHECK_QUESTION_PROMPT, title, content, history), 0.7)
	if err != nil {
		return "", err
	}
	if resp == "" {
		return "", fmt.Errorf("empty check question output")
	}

	return resp, nil
}

func (g *OpenAIGenerator) ExtractKeywords(title, content, question string) ([]string, error) {
	resp, err := g.complete("keyword extraction", fmt.Sprintf(KEYWORDS_PROMPT, title, content, question), 0.3)
	if err != nil {
		return nil, err
	}

	return ParseKeywordList(resp)
}

func (g *OpenAIGenerator) EvaluateAnswer(input EvaluationInput) (*Evaluation, error) {
	prompt := fmt.Sprintf(EVALUATE_PROMPT,
		input.Title,
		input.Content,
		input.CheckQuestion,
		strings.Join(input.ExpectedKeywords, ", "),
		input.UserAnswer,
	)

	resp, err := g.complete("answer evaluation", prompt, 0.3)
	if err != nil {
		return nil, err
	}

	return ParseEvaluation(resp)
}

func (g *OpenAIGenerator) AnswerQuestion(question, concept, content, history string) (string, error) {
	return g.complete("question answering", fmt.Sprintf(QA_PROMPT, question, concept, content, history), 0.7)
}

func (g *OpenAIGenerator) ClassifyIntent(input, concept, history string) (Intent, error) {
	resp, err := g.complete("intent classification", fmt.Sprintf(INTENT_PROMPT, input, concept, history), 0.3)
	if err != nil {
		return "", err
	}

	return ParseIntent(resp), nil
}

func (g *OpenAIGenerator) ClassifyRelevance(input, concept, content string) (Relevance, error) {
	resp, err := g.complete("relevance classification", fmt.Sprintf(RELEVANCE_PROMPT, input, concept, content), 0.3)
	if err != nil {
		return "", err
	}

	return ParseRelevance(resp)
}

func (g *OpenAIGenerator) Summarize(learned, total int, history string) (string, error) {
	resp, err := g.complete("session summary", fmt.Sprintf(SUMMARY_PROMPT, learned, total, history), 0.7)
	if err != nil {
		return "", err
	}
	if resp == "" {
		return "", fmt.Errorf("empty summary output")
	}

	return resp, nil
}
