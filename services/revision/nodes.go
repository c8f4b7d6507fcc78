package revision

import (
	"fmt"
	"log"
	"strings"

	"tutor/models"
	"tutor/services/generation"

	"github.com/samber/lo"
)

const (
	optionsPrompt    = "What would you like to do next?"
	retryPrompt      = "Let's try a different approach. What would you like to do?"
	ackNudge         = "Great! When you're ready, please choose one of the options above or ask me anything."
	transitionNotice = "Perfect! Moving to the next concept..."
)

// presentConcept explains the chunk under the cursor as three content
// bubbles plus an options bubble. When the cursor has moved past the last
// chunk the session is summarized and closed instead.
func (s *Service) presentConcept(session *models.Session, result *models.RevisionResult) node {
	title, content, ok := currentChunk(session)
	if !ok {
		summary := s.summarizeSession(session)
		session.ExpectingAnswer = false
		session.ExpectingButtonAction = false

		result.Messages = []models.Message{{
			AssistantMessage: summary,
			MessageType:      models.MessageTypeResponse,
		}}
		result.MessageFormat = models.MessageFormatSingle
		result.IsSessionComplete = true
		result.CurrentStage = stageCompleted
		return nodeTerminal
	}

	session.CurrentConceptCorrectAnswers = 0
	session.CurrentConceptQuestionsAsked = nil
	session.HasUsedLearningSupport = false

	messages, err := s.gen.Explain(title, content, s.formatHistory(session))
	if err != nil || len(messages) == 0 {
		log.Printf("[WARN] Explanation generation failed for '%s', using stored content: %v", title, err)
		messages = []models.Message{{
			AssistantMessage: fmt.Sprintf("Let's look at %s.\n\n%s", title, content),
			MessageType:      models.MessageTypeConceptSection,
		}}
	}
	messages = append(messages, models.Message{
		AssistantMessage: optionsPrompt,
		MessageType:      models.MessageTypeButtons,
		Buttons:          learningButtons(false),
	})

	s.recordAssistantTurns(session, messages, stageExplain, title)
	session.ExpectingButtonAction = true
	session.ExpectingAnswer = false
	session.CurrentQuestionConcept = title
	session.CurrentContent = content

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatMultipleBubbles
	result.CurrentStage = stageExplain
	return nodeTerminal
}

func (s *Service) handleAck(session *models.Session, result *models.RevisionResult) node {
	messages := []models.Message{{
		AssistantMessage: ackNudge,
		MessageType:      models.MessageTypeResponse,
	}}
	s.recordAssistantTurns(session, messages, stageAck, session.CurrentQuestionConcept)

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatSingle
	result.CurrentStage = stageAck
	return nodeTerminal
}

func (s *Service) handleQA(session *models.Session, result *models.RevisionResult) node {
	reply := s.answerOrRedirect(session)
	return s.respondWithOptions(session, result, reply, models.MessageTypeQAResponse,
		stageQA, "", optionsPrompt, learningButtons(true))
}

func (s *Service) handleCustom(session *models.Session, result *models.RevisionResult) node {
	reply := s.answerOrRedirect(session)
	return s.respondWithOptions(session, result, reply, models.MessageTypeCustomResponse,
		stageCustomInput, "", optionsPrompt, learningButtons(session.HasUsedLearningSupport))
}

// handleButton dispatches a button click or free text sent while buttons
// were showing. Unrecognized input falls back to relevance-gated Q&A.
func (s *Service) handleButton(session *models.Session, result *models.RevisionResult) node {
	title, content, ok := currentChunk(session)
	if !ok {
		session.ExpectingButtonAction = false
		result.Messages = []models.Message{{
			AssistantMessage: "No more concepts to explore.",
			MessageType:      models.MessageTypeResponse,
		}}
		result.MessageFormat = models.MessageFormatSingle
		result.IsSessionComplete = true
		result.CurrentStage = stageCompleted
		return nodeTerminal
	}

	action := matchButtonAction(session.UserMessage)

	if session.ConceptMastered {
		switch action {
		case actionMoreQuestions:
			return s.askAdditionalQuestion(session, result, title, content)
		case actionNextConcept:
			return s.advanceToNextConcept(session, result)
		}
	}

	switch action {
	case actionMoreExamples:
		text, err := s.gen.ExampleText(title, content, s.formatHistory(session))
		if err != nil || text == "" {
			log.Printf("[WARN] Example generation failed for '%s': %v", title, err)
			text = fmt.Sprintf("Let's revisit the key points of %s:\n\n%s", title, content)
		}
		session.HasUsedLearningSupport = true
		return s.respondWithOptions(session, result, text, models.MessageTypeResponse,
			stageButtonResponse, title, optionsPrompt, learningButtons(true))

	case actionReExplain:
		steps, err := s.gen.ReExplainSteps(title, content, s.formatHistory(session), 4)
		if err != nil || len(steps) == 0 {
			log.Printf("[WARN] Re-explanation generation failed for '%s': %v", title, err)
			steps = []string{content}
		}
		text := "Let me explain this concept again in a different way:\n\n" + strings.Join(steps, "\n")
		session.HasUsedLearningSupport = true
		return s.respondWithOptions(session, result, text, models.MessageTypeResponse,
			stageButtonResponse, title, optionsPrompt, learningButtons(true))

	case actionCheckUnderstanding:
		return s.startQuiz(session, result, title, content)

	default:
		reply := s.answerOrRedirect(session)
		return s.respondWithOptions(session, result, reply, models.MessageTypeResponse,
			stageButtonResponse, title, optionsPrompt, learningButtons(session.HasUsedLearningSupport))
	}
}

// startQuiz enters quiz mode with the first check question for the concept.
func (s *Service) startQuiz(session *models.Session, result *models.RevisionResult, title, content string) node {
	question := s.prepareCheckQuestion(session, title, content)

	correct := session.CurrentConceptCorrectAnswers
	required := s.requiredFor(session)
	text := fmt.Sprintf("Great! Let's test your understanding. You need to answer %d questions correctly to master this concept.\n\n**Progress: %d/%d correct answers**\n\n**Question %d:**\n%s",
		required, correct, required, correct+1, question)

	session.ExpectingAnswer = true
	session.ExpectingButtonAction = false

	messages := []models.Message{{
		AssistantMessage: text,
		MessageType:      models.MessageTypeQuestion,
	}}
	s.recordAssistantTurns(session, messages, stageQuizQuestion, title)

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatSingle
	result.CurrentStage = stageQuizQuestion
	return nodeTerminal
}

// askAdditionalQuestion continues quizzing a concept the student already
// mastered. The mastery flag stays set so further correct answers count as
// bonus rounds instead of re-triggering mastery.
func (s *Service) askAdditionalQuestion(session *models.Session, result *models.RevisionResult, title, content string) node {
	session.ExpectingButtonAction = false
	session.ExpectingAnswer = true

	question := s.prepareCheckQuestion(session, title, content)
	text := fmt.Sprintf("Great! Let's continue with more questions to deepen your understanding.\n\n**Additional Question %d:**\n%s",
		session.CurrentConceptCorrectAnswers+1, question)

	messages := []models.Message{{
		AssistantMessage: text,
		MessageType:      models.MessageTypeQuestion,
	}}
	s.recordAssistantTurns(session, messages, stageAdditionalQuestion, title)

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatSingle
	result.CurrentStage = stageAdditionalQuestion
	return nodeTerminal
}

// advanceToNextConcept emits a transition bubble and hands off to the
// presentation node for the next chunk.
func (s *Service) advanceToNextConcept(session *models.Session, result *models.RevisionResult) node {
	session.ConceptMastered = false
	session.CurrentChunkIndex++
	session.ExpectingAnswer = false
	session.ExpectingButtonAction = false
	session.CurrentQuestionConcept = ""

	messages := []models.Message{{
		AssistantMessage: transitionNotice,
		MessageType:      models.MessageTypeTransition,
	}}
	s.recordAssistantTurns(session, messages, stageConceptTransition, "")

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatMultipleBubbles
	return nodePresentConcept
}

func (s *Service) evaluateAnswer(session *models.Session, result *models.RevisionResult) node {
	title := session.CurrentQuestionConcept
	content := session.CurrentContent
	if _, chunkContent, ok := currentChunk(session); ok {
		content = chunkContent
	}

	eval, err := s.gen.EvaluateAnswer(generation.EvaluationInput{
		UserAnswer:       session.UserMessage,
		ExpectedKeywords: session.CurrentExpectedKeywords,
		Title:            title,
		Content:          content,
		CheckQuestion:    session.CurrentQuestion,
		History:          s.formatHistory(session),
	})
	if err != nil {
		log.Printf("[WARN] Answer evaluation failed, treating answer as wrong: %v", err)
		eval = &generation.Evaluation{
			Verdict:    generation.VerdictWrong,
			Correction: "Take another look at the explanation above and focus on the key terms.",
		}
	}

	if eval.Verdict != generation.VerdictCorrect {
		return s.wrongAnswerFeedback(session, result, eval)
	}

	required := s.requiredFor(session)
	if session.ConceptMastered && session.CurrentConceptCorrectAnswers >= required {
		return s.additionalCorrect(session, result, eval, title)
	}

	session.CurrentConceptCorrectAnswers++
	correct := session.CurrentConceptCorrectAnswers
	feedback := fmt.Sprintf("CORRECT!\nGreat job! Your answer is absolutely right. You covered all the key points:\n\n**Progress: %d/%d correct answers**",
		correct, required)

	if correct >= required {
		return s.conceptMastered(session, result, feedback, title, required)
	}

	question := s.prepareCheckQuestion(session, title, content)
	text := feedback + fmt.Sprintf("\nLet's try another question:\n\n**Question %d:**\n%s", correct+1, question)

	messages := []models.Message{{
		AssistantMessage: text,
		MessageType:      models.MessageTypeQuestion,
	}}
	s.recordAssistantTurns(session, messages, stageNextQuestion, title)

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatSingle
	result.CurrentStage = stageNextQuestion
	return nodeTerminal
}

// conceptMastered records the mastery event once and offers the next steps.
func (s *Service) conceptMastered(session *models.Session, result *models.RevisionResult, feedback, title string, required int) node {
	if !lo.Contains(session.ConceptsLearned, title) {
		session.ConceptsLearned = append(session.ConceptsLearned, title)
	}
	session.ExpectingAnswer = false
	session.ExpectingButtonAction = true
	session.ConceptMastered = true

	feedback += fmt.Sprintf("\n\n🎉 **Concept Mastered!**\nYou've successfully answered %d questions correctly.", required)

	messages := []models.Message{
		{AssistantMessage: feedback, MessageType: models.MessageTypeMasteryFeedback},
		{AssistantMessage: optionsPrompt, MessageType: models.MessageTypeMasteryButtons, Buttons: masteryButtons()},
	}
	s.recordAssistantTurns(session, messages, stageConceptMastered, title)

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatMultipleBubbles
	result.CurrentStage = stageConceptMastered
	return nodeTerminal
}

// additionalCorrect acknowledges a bonus correct answer after mastery
// without touching the counters.
func (s *Service) additionalCorrect(session *models.Session, result *models.RevisionResult, eval *generation.Evaluation, title string) node {
	justification := eval.Justification
	if justification == "" {
		justification = "Great explanation!"
	}
	feedback := fmt.Sprintf("CORRECT!\nExcellent! You continue to demonstrate strong understanding of this concept.\n\nWhat you got right:\n%s", justification)

	session.ExpectingAnswer = false
	session.ExpectingButtonAction = true

	messages := []models.Message{
		{AssistantMessage: feedback, MessageType: models.MessageTypeAdditionalCorrect},
		{AssistantMessage: optionsPrompt, MessageType: models.MessageTypeMasteryButtons, Buttons: masteryButtons()},
	}
	s.recordAssistantTurns(session, messages, stageAdditionalCorrect, title)

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatMultipleBubbles
	result.CurrentStage = stageAdditionalCorrect
	return nodeTerminal
}

func (s *Service) wrongAnswerFeedback(session *models.Session, result *models.RevisionResult, eval *generation.Evaluation) node {
	correction := eval.Correction
	if correction == "" {
		correction = eval.Justification
	}

	var feedback string
	if eval.Verdict == generation.VerdictPartial {
		feedback = "Almost there! You're on the right track, but something is missing.\n\n" + correction
	} else {
		feedback = "Not quite right.\n\n" + correction
	}

	session.ExpectingAnswer = false
	return s.respondWithOptions(session, result, feedback, models.MessageTypeFeedback,
		stageWrongAnswerFeedback, session.CurrentQuestionConcept, retryPrompt, learningButtons(true))
}

func (s *Service) conclusion(session *models.Session, result *models.RevisionResult) node {
	summary := s.summarizeSession(session)

	result.Messages = []models.Message{{
		AssistantMessage: summary,
		MessageType:      models.MessageTypeResponse,
	}}
	result.MessageFormat = models.MessageFormatSingle
	result.IsSessionComplete = true
	result.CurrentStage = stageCompleted
	return nodeTerminal
}

// respondWithOptions emits a reply bubble followed by an options bubble and
// leaves the session waiting for a button action.
func (s *Service) respondWithOptions(session *models.Session, result *models.RevisionResult,
	text, messageType, stage, concept, prompt string, buttons []models.Button) node {

	messages := []models.Message{
		{AssistantMessage: text, MessageType: messageType},
		{AssistantMessage: prompt, MessageType: models.MessageTypeButtons, Buttons: buttons},
	}
	s.recordAssistantTurns(session, messages, stage, concept)
	session.ExpectingButtonAction = true
	session.ExpectingAnswer = false

	result.Messages = append(result.Messages, messages...)
	result.MessageFormat = models.MessageFormatMultipleBubbles
	result.CurrentStage = stage
	return nodeTerminal
}

// answerOrRedirect answers a relevant question about the current concept, or
// politely steers an off-topic input back to it. Classification failures are
// treated as off-topic.
func (s *Service) answerOrRedirect(session *models.Session) string {
	concept := session.CurrentQuestionConcept
	content := session.CurrentContent
	if _, chunkContent, ok := currentChunk(session); ok {
		content = chunkContent
	}

	relevance, err := s.gen.ClassifyRelevance(session.UserMessage, concept, content)
	if err != nil {
		log.Printf("[WARN] Relevance classification failed, redirecting: %v", err)
		relevance = generation.RelevanceIrrelevant
	}

	if relevance == generation.RelevanceRelevant {
		answer, err := s.gen.AnswerQuestion(session.UserMessage, concept, content, s.formatHistory(session))
		if err != nil || answer == "" {
			log.Printf("[WARN] Question answering failed: %v", err)
			return fmt.Sprintf("I'm having trouble answering that right now. Let's keep working on %s and you can ask again in a moment.", concept)
		}
		return answer
	}

	return fmt.Sprintf("That's a bit outside what we're working on. Let's stay focused on %s. Feel free to ask me anything about it or pick one of the options above.", concept)
}

// prepareCheckQuestion generates the next check question and its expected
// keywords, recording both on the session. Generation failures degrade to a
// templated question and the first words of the concept title.
func (s *Service) prepareCheckQuestion(session *models.Session, title, content string) string {
	question, err := s.gen.CheckQuestion(title, content, s.formatHistory(session))
	if err != nil || question == "" {
		log.Printf("[WARN] Check question generation failed for '%s': %v", title, err)
		question = fmt.Sprintf("In your own words, what is %s?", title)
	}
	session.CurrentConceptQuestionsAsked = append(session.CurrentConceptQuestionsAsked, question)

	keywords, err := s.gen.ExtractKeywords(title, content, question)
	if err != nil || len(keywords) == 0 {
		log.Printf("[WARN] Keyword extraction failed for '%s': %v", title, err)
		keywords = fallbackKeywords(title)
	}
	session.CurrentExpectedKeywords = keywords
	session.CurrentQuestion = question

	return question
}

func (s *Service) summarizeSession(session *models.Session) string {
	learned := len(session.ConceptsLearned)
	total := len(session.ConceptChunks)

	summary, err := s.gen.Summarize(learned, total, s.formatHistory(session))
	if err != nil || summary == "" {
		log.Printf("[WARN] Summary generation failed: %v", err)
		summary = fmt.Sprintf("Great work today! You mastered %d of %d concepts. Come back soon to review the rest.", learned, total)
	}
	return summary
}

// requiredFor guards against sessions persisted before the threshold was
// recorded on the document.
func (s *Service) requiredFor(session *models.Session) int {
	if session.RequiredCorrectAnswers > 0 {
		return session.RequiredCorrectAnswers
	}
	return s.required
}

func fallbackKeywords(title string) []string {
	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}
	return words
}
