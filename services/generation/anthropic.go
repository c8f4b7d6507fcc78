package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"tutor/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/invopop/jsonschema"
)

// AnthropicGenerator is the alternate Generator provider. Free-text
// operations share the prompts and parsers of the OpenAI implementation;
// answer evaluation uses a forced tool call so the verdict arrives as
// structured arguments instead of parsed lines.
type AnthropicGenerator struct {
	client *anthropic.Client
}

func NewAnthropicGenerator(apiKey string) *AnthropicGenerator {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicGenerator{client: &client}
}

type recordEvaluationInput struct {
	Verdict       string `json:"verdict" jsonschema:"required,enum=CORRECT,enum=PARTIAL,enum=WRONG,description=Whether the student's answer is correct, partially correct, or wrong"`
	Justification string `json:"justification" jsonschema:"required,description=One short sentence explaining the verdict"`
	Correction    string `json:"correction,omitempty" jsonschema:"description=One short sentence with the correct idea or term"`
}

func generateAnthropicSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}

func (g *AnthropicGenerator) complete(operation, prompt string) (string, error) {
	ctx := context.Background()

	log.Printf("[INFO] Calling Anthropic for %s", operation)
	response, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaude4Sonnet20250514,
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		log.Printf("[ERROR] Failed to generate %s response: %v", operation, err)
		return "", fmt.Errorf("failed to generate %s response: %w", operation, err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(textBlock.Text)
		}
	}

	return strings.TrimSpace(text.String()), nil
}

func (g *AnthropicGenerator) Explain(title, content, history string) ([]models.Message, error) {
	resp, err := g.complete("explanation", fmt.Sprintf(EXPLAIN_PROMPT, title, content, history))
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

func (g *AnthropicGenerator) ExampleText(title, content, history string) (string, error) {
	return g.complete("examples", fmt.Sprintf(EXAMPLES_PROMPT, title, content, history))
}

func (g *AnthropicGenerator) ReExplainSteps(title, content, history string, steps int) ([]string, error) {
	resp, err := g.complete("re-explanation", fmt.Sprintf(RE_EXPLAIN_PROMPT, title, steps, content, history))
	if err != nil {
		return nil, err
	}

	lines := ParseNumberedSteps(resp, steps)
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty re-explanation output")
	}

	return lines, nil
}

func (g *AnthropicGenerator) CheckQuestion(title, content, history string) (string, error) {
	resp, err := g.complete("check question", fmt.Sprintf(CHECK_QUESTION_PROMPT, title, content, history))
	if err != nil {
		return "", err
	}
	if resp == "" {
		return "", fmt.Errorf("empty check question output")
	}

	return resp, nil
}

func (g *AnthropicGenerator) ExtractKeywords(title, content, question string) ([]string, error) {
	resp, err := g.complete("keyword extraction", fmt.Sprintf(KEYWORDS_PROMPT, title, content, question))
	if err != nil {
		return nil, err
	}

	return ParseKeywordList(resp)
}

func (g *AnthropicGenerator) EvaluateAnswer(input EvaluationInput) (*Evaluation, error) {
	ctx := context.Background()

	prompt := fmt.Sprintf(EVALUATE_PROMPT,
		input.Title,
		input.Content,
		input.CheckQuestion,
		strings.Join(input.ExpectedKeywords, ", "),
		input.UserAnswer,
	)

	log.Printf("[INFO] Calling Anthropic for answer evaluation")
	response, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaude4Sonnet20250514,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        "record_evaluation",
					Description: anthropic.String("Record the structured verdict for the student's answer"),
					InputSchema: generateAnthropicSchema[recordEvaluationInput](),
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: "record_evaluation"},
		},
	})
	if err != nil {
		log.Printf("[ERROR] Failed to generate answer evaluation: %v", err)
		return nil, fmt.Errorf("failed to generate answer evaluation: %w", err)
	}

	for _, block := range response.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || toolUse.Name != "record_evaluation" {
			continue
		}

		var params recordEvaluationInput
		if err := json.Unmarshal(toolUse.Input, &params); err != nil {
			return nil, fmt.Errorf("failed to parse record_evaluation arguments: %w", err)
		}

		verdict := Verdict(strings.ToUpper(params.Verdict))
		switch verdict {
		case VerdictCorrect, VerdictPartial, VerdictWrong:
		default:
			return nil, fmt.Errorf("unknown verdict %q", params.Verdict)
		}

		correction := params.Correction
		if correction == "" {
			correction = params.Justification
		}

		return &Evaluation{
			Verdict:       verdict,
			Justification: params.Justification,
			Correction:    correction,
		}, nil
	}

	return nil, fmt.Errorf("no record_evaluation tool call in response")
}

func (g *AnthropicGenerator) AnswerQuestion(question, concept, content, history string) (string, error) {
	return g.complete("question answering", fmt.Sprintf(QA_PROMPT, question, concept, content, history))
}

func (g *AnthropicGenerator) ClassifyIntent(input, concept, history string) (Intent, error) {
	resp, err := g.complete("intent classification", fmt.Sprintf(INTENT_PROMPT, input, concept, history))
	if err != nil {
		return "", err
	}

	return ParseIntent(resp), nil
}

func (g *AnthropicGenerator) ClassifyRelevance(input, concept, content string) (Relevance, error) {
	resp, err := g.complete("relevance classification", fmt.Sprintf(RELEVANCE_PROMPT, input, concept, content))
	if err != nil {
		return "", err
	}

	return ParseRelevance(resp)
}

func (g *AnthropicGenerator) Summarize(learned, total int, history string) (string, error) {
	resp, err := g.complete("session summary", fmt.Sprintf(SUMMARY_PROMPT, learned, total, history))
	if err != nil {
		return "", err
	}
	if resp == "" {
		return "", fmt.Errorf("empty summary output")
	}

	return resp, nil
}
