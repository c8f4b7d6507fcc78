package revision

import (
	"fmt"
	"strings"
	"testing"

	"tutor/models"
	"tutor/services/generation"
)

type fakeSessionRepo struct {
	sessions map[string]*models.Session
	saveErr  error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*models.Session{}}
}

func (f *fakeSessionRepo) GetSession(sessionID string) (*models.Session, error) {
	return f.sessions[sessionID], nil
}

func (f *fakeSessionRepo) SaveSession(session *models.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sessions[session.SessionID] = session
	return nil
}

type fakeContent struct {
	chunks []models.ConceptChunk
}

func (f *fakeContent) GetConceptChunks(topic string) ([]models.ConceptChunk, error) {
	return f.chunks, nil
}

type fakeGenerator struct {
	intent    generation.Intent
	relevance generation.Relevance
	verdict   generation.Verdict

	explainErr   error
	keywordsErr  error
	summarizeErr error
}

func (f *fakeGenerator) Explain(title, content, history string) ([]models.Message, error) {
	if f.explainErr != nil {
		return nil, f.explainErr
	}
	sections := []string{"definition", "technical", "examples"}
	messages := make([]models.Message, len(sections))
	for i, section := range sections {
		messages[i] = models.Message{
			AssistantMessage: fmt.Sprintf("%s of %s", section, title),
			MessageType:      models.MessageTypeConceptSection,
			Section:          section,
		}
	}
	return messages, nil
}

func (f *fakeGenerator) ExampleText(title, content, history string) (string, error) {
	return "Here is another example of " + title + ".", nil
}

func (f *fakeGenerator) ReExplainSteps(title, content, history string, steps int) ([]string, error) {
	return []string{"1. First step.", "2. Second step."}, nil
}

func (f *fakeGenerator) CheckQuestion(title, content, history string) (string, error) {
	return "What pulls objects toward Earth?", nil
}

func (f *fakeGenerator) ExtractKeywords(title, content, question string) ([]string, error) {
	if f.keywordsErr != nil {
		return nil, f.keywordsErr
	}
	return []string{"gravity"}, nil
}

func (f *fakeGenerator) EvaluateAnswer(input generation.EvaluationInput) (*generation.Evaluation, error) {
	return &generation.Evaluation{
		Verdict:       f.verdict,
		Justification: "You named the key term.",
		Correction:    "The key term is gravity.",
	}, nil
}

func (f *fakeGenerator) AnswerQuestion(question, concept, content, history string) (string, error) {
	return "Gravity pulls every object toward every other object.", nil
}

func (f *fakeGenerator) ClassifyIntent(input, concept, history string) (generation.Intent, error) {
	return f.intent, nil
}

func (f *fakeGenerator) ClassifyRelevance(input, concept, content string) (generation.Relevance, error) {
	return f.relevance, nil
}

func (f *fakeGenerator) Summarize(learned, total int, history string) (string, error) {
	if f.summarizeErr != nil {
		return "", f.summarizeErr
	}
	return fmt.Sprintf("You mastered %d of %d concepts. Well done!", learned, total), nil
}

func forceChunks() []models.ConceptChunk {
	return []models.ConceptChunk{
		{Number: 1, Title: "Gravity", Content: "Gravity is the attraction between masses."},
		{Number: 2, Title: "Friction", Content: "Friction resists relative motion."},
	}
}

func newTestService(gen *fakeGenerator, chunks []models.ConceptChunk) (*Service, *fakeSessionRepo) {
	repo := newFakeSessionRepo()
	service := NewService(repo, &fakeContent{chunks: chunks}, gen, Config{RequiredCorrectAnswers: 2})
	return service, repo
}

func assertFlagsExclusive(t *testing.T, session *models.Session) {
	t.Helper()
	if session.ExpectingAnswer && session.ExpectingButtonAction {
		t.Fatal("expecting_answer and expecting_button_action are both set")
	}
}

func TestStartFreshSession(t *testing.T) {
	service, repo := newTestService(&fakeGenerator{}, forceChunks())

	result, err := service.Start("Forces", "s1", "sess1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CurrentStage != "explain" {
		t.Errorf("expected stage explain, got %s", result.CurrentStage)
	}
	if result.MessageFormat != models.MessageFormatMultipleBubbles {
		t.Errorf("expected multiple_bubbles, got %s", result.MessageFormat)
	}
	if len(result.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result.Messages))
	}
	last := result.Messages[3]
	if last.MessageType != models.MessageTypeButtons || len(last.Buttons) != 2 {
		t.Errorf("expected a 2-option buttons bubble, got %+v", last)
	}
	if result.CurrentConcept != "Gravity" {
		t.Errorf("expected current concept Gravity, got %s", result.CurrentConcept)
	}

	session := repo.sessions["sess1"]
	if session == nil {
		t.Fatal("session was not saved")
	}
	if !session.ExpectingButtonAction {
		t.Error("expected session to await a button action")
	}
	if session.ConversationCount != 4 {
		t.Errorf("expected conversation count 4, got %d", session.ConversationCount)
	}
	assertFlagsExclusive(t, session)
}

func TestExplainFallbackUsesStoredContent(t *testing.T) {
	gen := &fakeGenerator{explainErr: fmt.Errorf("provider down")}
	service, _ := newTestService(gen, forceChunks())

	result, err := service.Start("Forces", "s1", "sess1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Messages) != 2 {
		t.Fatalf("expected combined bubble plus buttons, got %d messages", len(result.Messages))
	}
	if !strings.Contains(result.Messages[0].AssistantMessage, "Gravity is the attraction") {
		t.Errorf("fallback bubble should carry the stored content, got %q", result.Messages[0].AssistantMessage)
	}
}

func TestCheckUnderstandingEntersQuiz(t *testing.T) {
	service, repo := newTestService(&fakeGenerator{}, forceChunks())

	if _, err := service.Start("Forces", "s1", "sess1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	result, err := service.Handle("sess1", "check_understanding")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CurrentStage != "quiz_question" {
		t.Errorf("expected stage quiz_question, got %s", result.CurrentStage)
	}
	if !strings.Contains(result.Messages[0].AssistantMessage, "Question 1:") {
		t.Errorf("expected first question marker, got %q", result.Messages[0].AssistantMessage)
	}

	session := repo.sessions["sess1"]
	if !session.ExpectingAnswer {
		t.Error("expected session to await an answer")
	}
	if session.CurrentQuestion == "" || len(session.CurrentExpectedKeywords) == 0 {
		t.Error("expected question and keywords to be recorded")
	}
	assertFlagsExclusive(t, session)
}

func TestMasteryAfterRequiredCorrectAnswers(t *testing.T) {
	gen := &fakeGenerator{verdict: generation.VerdictCorrect}
	service, repo := newTestService(gen, forceChunks())

	mustHandleSequence(t, service, "sess1", "Forces", []string{"check_understanding", "gravity"})

	result, err := service.Handle("sess1", "it is gravity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CurrentStage != "concept_mastered" {
		t.Errorf("expected stage concept_mastered, got %s", result.CurrentStage)
	}

	session := repo.sessions["sess1"]
	if !session.ConceptMastered {
		t.Error("expected concept to be mastered")
	}
	if len(session.ConceptsLearned) != 1 || session.ConceptsLearned[0] != "Gravity" {
		t.Errorf("expected concepts learned [Gravity], got %v", session.ConceptsLearned)
	}

	last := result.Messages[len(result.Messages)-1]
	if last.MessageType != models.MessageTypeMasteryButtons || len(last.Buttons) != 2 {
		t.Errorf("expected mastery options, got %+v", last)
	}
	assertFlagsExclusive(t, session)
}

func TestAdditionalQuestionsKeepMasteryUnique(t *testing.T) {
	gen := &fakeGenerator{verdict: generation.VerdictCorrect}
	service, repo := newTestService(gen, forceChunks())

	mustHandleSequence(t, service, "sess1", "Forces",
		[]string{"check_understanding", "gravity", "gravity"})

	result, err := service.Handle("sess1", "more_questions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CurrentStage != "additional_question" {
		t.Errorf("expected stage additional_question, got %s", result.CurrentStage)
	}
	if !repo.sessions["sess1"].ExpectingAnswer {
		t.Error("expected session to await an answer")
	}

	result, err = service.Handle("sess1", "still gravity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CurrentStage != "additional_correct" {
		t.Errorf("expected stage additional_correct, got %s", result.CurrentStage)
	}

	session := repo.sessions["sess1"]
	if len(session.ConceptsLearned) != 1 {
		t.Errorf("expected one mastery record, got %v", session.ConceptsLearned)
	}
	if session.CurrentConceptCorrectAnswers != 2 {
		t.Errorf("bonus answers must not change the counter, got %d", session.CurrentConceptCorrectAnswers)
	}
}

func TestWrongAnswerOffersRetryOptions(t *testing.T) {
	gen := &fakeGenerator{verdict: generation.VerdictWrong}
	service, repo := newTestService(gen, forceChunks())

	mustHandleSequence(t, service, "sess1", "Forces", []string{"check_understanding"})

	result, err := service.Handle("sess1", "magnetism")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CurrentStage != "wrong_answer_feedback" {
		t.Errorf("expected stage wrong_answer_feedback, got %s", result.CurrentStage)
	}
	if len(result.Messages) != 2 {
		t.Fatalf("expected feedback plus options, got %d messages", len(result.Messages))
	}
	if len(result.Messages[1].Buttons) != 3 {
		t.Errorf("expected 3 retry options, got %+v", result.Messages[1].Buttons)
	}

	session := repo.sessions["sess1"]
	if session.ExpectingAnswer || !session.ExpectingButtonAction {
		t.Error("expected session to be back in button mode")
	}
}

func TestNextConceptOnLastChunkCompletesSession(t *testing.T) {
	gen := &fakeGenerator{verdict: generation.VerdictCorrect}
	service, repo := newTestService(gen, forceChunks()[:1])

	mustHandleSequence(t, service, "sess1", "Forces",
		[]string{"check_understanding", "gravity", "gravity"})

	result, err := service.Handle("sess1", "next_concept")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.IsSessionComplete {
		t.Error("expected session to complete")
	}
	if result.CurrentStage != "completed" {
		t.Errorf("expected stage completed, got %s", result.CurrentStage)
	}
	if len(result.Messages) != 1 || !strings.Contains(result.Messages[0].AssistantMessage, "mastered 1 of 1") {
		t.Errorf("expected a summary message, got %+v", result.Messages)
	}
	if !repo.sessions["sess1"].IsComplete {
		t.Error("expected session record to be complete")
	}
}

func TestNextConceptPresentsFollowingChunk(t *testing.T) {
	gen := &fakeGenerator{verdict: generation.VerdictCorrect}
	service, repo := newTestService(gen, forceChunks())

	mustHandleSequence(t, service, "sess1", "Forces",
		[]string{"check_understanding", "gravity", "gravity"})

	result, err := service.Handle("sess1", "Can you move to the next concept?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CurrentStage != "explain" {
		t.Errorf("expected stage explain, got %s", result.CurrentStage)
	}
	if result.Messages[0].MessageType != models.MessageTypeTransition {
		t.Errorf("expected a leading transition bubble, got %+v", result.Messages[0])
	}
	if result.CurrentConcept != "Friction" {
		t.Errorf("expected current concept Friction, got %s", result.CurrentConcept)
	}

	session := repo.sessions["sess1"]
	if session.CurrentChunkIndex != 1 {
		t.Errorf("expected chunk index 1, got %d", session.CurrentChunkIndex)
	}
	if session.CurrentConceptCorrectAnswers != 0 || session.ConceptMastered {
		t.Error("expected per-concept quiz state to be reset")
	}
}

func TestIrrelevantQuestionRedirects(t *testing.T) {
	gen := &fakeGenerator{
		intent:    generation.IntentAskingQuestion,
		relevance: generation.RelevanceIrrelevant,
	}
	service, repo := newTestService(gen, forceChunks())

	// Session in free-text mode: not expecting a button or an answer.
	repo.sessions["sess1"] = &models.Session{
		SessionID:              "sess1",
		StudentID:              "s1",
		Topic:                  "Forces",
		RequiredCorrectAnswers: 2,
		ConceptChunks:          forceChunks(),
		CurrentQuestionConcept: "Gravity",
		CurrentContent:         "Gravity is the attraction between masses.",
	}

	result, err := service.Handle("sess1", "Who is the president?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CurrentStage != "qa" {
		t.Errorf("expected stage qa, got %s", result.CurrentStage)
	}
	if !strings.Contains(result.Messages[0].AssistantMessage, "Gravity") {
		t.Errorf("redirect should name the current concept, got %q", result.Messages[0].AssistantMessage)
	}

	session := repo.sessions["sess1"]
	if !session.ExpectingButtonAction || session.ExpectingAnswer {
		t.Error("expected button mode after redirect")
	}
}

func TestAcknowledgementNudges(t *testing.T) {
	gen := &fakeGenerator{intent: generation.IntentAcknowledgement}
	service, repo := newTestService(gen, forceChunks())

	repo.sessions["sess1"] = &models.Session{
		SessionID:              "sess1",
		Topic:                  "Forces",
		RequiredCorrectAnswers: 2,
		ConceptChunks:          forceChunks(),
		CurrentQuestionConcept: "Gravity",
	}

	result, err := service.Handle("sess1", "ok got it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CurrentStage != "ack" {
		t.Errorf("expected stage ack, got %s", result.CurrentStage)
	}
	if result.MessageFormat != models.MessageFormatSingle {
		t.Errorf("expected single format, got %s", result.MessageFormat)
	}
	if !strings.Contains(result.Messages[0].AssistantMessage, "choose one of the options") {
		t.Errorf("unexpected nudge text %q", result.Messages[0].AssistantMessage)
	}
}

func TestLearningSupportUnlocksQuizButton(t *testing.T) {
	service, repo := newTestService(&fakeGenerator{}, forceChunks())

	if _, err := service.Start("Forces", "s1", "sess1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	result, err := service.Handle("sess1", "I need more examples")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CurrentStage != "button_response" {
		t.Errorf("expected stage button_response, got %s", result.CurrentStage)
	}
	buttons := result.Messages[1].Buttons
	if len(buttons) != 3 || buttons[2].Action != "check_understanding" {
		t.Errorf("expected quiz entry button after using support, got %+v", buttons)
	}
	if !repo.sessions["sess1"].HasUsedLearningSupport {
		t.Error("expected learning support flag to be set")
	}
}

func TestSessionNotFound(t *testing.T) {
	service, repo := newTestService(&fakeGenerator{}, forceChunks())

	result, err := service.Handle("missing", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.IsSessionComplete {
		t.Error("expected a terminal response")
	}
	if !strings.Contains(result.Messages[0].AssistantMessage, "Session not found") {
		t.Errorf("unexpected message %q", result.Messages[0].AssistantMessage)
	}
	if len(repo.sessions) != 0 {
		t.Error("handle must not create sessions")
	}
}

func TestStartOnCompleteSessionIsIdempotent(t *testing.T) {
	gen := &fakeGenerator{summarizeErr: fmt.Errorf("provider down")}
	service, repo := newTestService(gen, forceChunks())

	repo.sessions["sess1"] = &models.Session{
		SessionID:              "sess1",
		Topic:                  "Forces",
		IsComplete:             true,
		RequiredCorrectAnswers: 2,
		ConceptChunks:          forceChunks(),
		ConceptsLearned:        []string{"Gravity"},
		ConversationHistory:    []models.ConversationTurn{{Turn: 1}},
		ConversationCount:      1,
	}

	result, err := service.Start("Forces", "s1", "sess1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.IsSessionComplete {
		t.Error("expected completion response")
	}
	// Summary generation failed, so the templated fallback is used.
	if !strings.Contains(result.Messages[0].AssistantMessage, "mastered 1 of 2") {
		t.Errorf("expected fallback summary, got %q", result.Messages[0].AssistantMessage)
	}
	if len(repo.sessions["sess1"].ConversationHistory) != 1 {
		t.Error("history must not change when starting a complete session")
	}
}

func TestKeywordFallbackUsesTitleWords(t *testing.T) {
	gen := &fakeGenerator{keywordsErr: fmt.Errorf("provider down")}
	service, repo := newTestService(gen, []models.ConceptChunk{
		{Number: 1, Title: "Newtonian Gravity Basics Overview", Content: "Content."},
	})

	mustHandleSequence(t, service, "sess1", "Forces", []string{"check_understanding"})

	keywords := repo.sessions["sess1"].CurrentExpectedKeywords
	expected := []string{"Newtonian", "Gravity", "Basics"}
	if len(keywords) != 3 {
		t.Fatalf("expected 3 fallback keywords, got %v", keywords)
	}
	for i, kw := range expected {
		if keywords[i] != kw {
			t.Errorf("expected keyword %q at %d, got %q", kw, i, keywords[i])
		}
	}
}

func TestConversationCountMonotonicAndFlagsExclusive(t *testing.T) {
	gen := &fakeGenerator{verdict: generation.VerdictCorrect}
	service, repo := newTestService(gen, forceChunks())

	if _, err := service.Start("Forces", "s1", "sess1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	previous := repo.sessions["sess1"].ConversationCount
	inputs := []string{"re_explain", "check_understanding", "gravity", "gravity", "more_questions", "gravity", "next_concept"}
	for _, input := range inputs {
		if _, err := service.Handle("sess1", input); err != nil {
			t.Fatalf("handle(%q) failed: %v", input, err)
		}
		session := repo.sessions["sess1"]
		if session.ConversationCount < previous {
			t.Fatalf("conversation count decreased after %q: %d < %d", input, session.ConversationCount, previous)
		}
		if session.CurrentChunkIndex > len(session.ConceptChunks) {
			t.Fatalf("chunk index out of bounds after %q: %d", input, session.CurrentChunkIndex)
		}
		assertFlagsExclusive(t, session)
		previous = session.ConversationCount
	}
}

func TestTurnNumbersStayAlignedWithCount(t *testing.T) {
	service, repo := newTestService(&fakeGenerator{}, forceChunks())

	mustHandleSequence(t, service, "sess1", "Forces", []string{"more examples please"})

	session := repo.sessions["sess1"]
	if len(session.ConversationHistory) != session.ConversationCount {
		t.Fatalf("history length %d does not match count %d", len(session.ConversationHistory), session.ConversationCount)
	}
	for i, turn := range session.ConversationHistory {
		if turn.Turn != i+1 {
			t.Errorf("turn %d numbered %d", i, turn.Turn)
		}
	}
}

func mustHandleSequence(t *testing.T, service *Service, sessionID, topic string, inputs []string) {
	t.Helper()
	if _, err := service.Start(topic, "s1", sessionID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for _, input := range inputs {
		if _, err := service.Handle(sessionID, input); err != nil {
			t.Fatalf("handle(%q) failed: %v", input, err)
		}
	}
}
