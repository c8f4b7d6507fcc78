package generation

const (
	EXPLAIN_PROMPT = `You are a friendly tutor introducing the concept "%s" to a student.

Write the explanation as exactly three sections, separated by a line containing only three dashes (---):
1. A simple definition a student can remember.
2. The technical detail behind it.
3. One or two concrete examples.

Keep each section short (2-4 sentences). Use simple, clear language.

Content to explain:
%s

Conversation history (latest first):
%s

Return only the three sections separated by --- lines, nothing else.`

	EXAMPLES_PROMPT = `You are a friendly tutor. The student asked for more examples of the concept "%s".

Concept content:
%s

Conversation history (latest first):
%s

Give 2-3 fresh, concrete examples that were not used before. Keep each example short and relatable. Return only the examples.`

	RE_EXPLAIN_PROMPT = `You are a friendly step-by-step tutor re-explaining the concept "%s" in a different way.

Break the concept into %d simple, numbered steps that build understanding progressively.

Content to explain:
%s

Guidelines:
- Keep each step concise (1-2 sentences)
- Use simple, clear language
- Take a different angle than a plain definition

Conversation history (latest first):
%s

Provide only the numbered explanation steps:`

	CHECK_QUESTION_PROMPT = `Create a simple check question to test understanding of the concept '%s'.

Concept content:
%s

The question should:
- Be directly related to the key concept
- Be answerable in 1-3 words or a short sentence
- Test understanding, not memorization
- Be clear and unambiguous

Conversation history (latest first):
%s

Return only the question text:`

	KEYWORDS_PROMPT = `You are selecting the minimal set of key words/phrases needed to mark an answer correct for the given check question.

Concept title: %s
Concept content:
%s

Check question: %s

Return a JSON array of 2-5 lowercase keywords/phrases that should appear in a correct answer. Prefer the exact target term. Do not add any text before or after the JSON.`

	EVALUATE_PROMPT = `You are grading a student's answer to a check question during a tutoring session. Use the full context below.

Concept title: %s
Concept content:
%s

Check question: %s

Expected keywords: %s

Student's answer: %s

Decide VERDICT: CORRECT, PARTIAL, or WRONG.
Keep it strict but fair: give PARTIAL if they show understanding but miss the key term.

Return in this exact format (3 lines):
VERDICT: <CORRECT|PARTIAL|WRONG>
JUSTIFICATION: <one short sentence>
CORRECTION: <one short sentence with the correct idea/term>`

	QA_PROMPT = `You are a helpful tutor answering a student's question during a tutoring session.

Student's question: %s

Current concept: %s
Concept content:
%s

Conversation history (latest first):
%s

Guidelines:
- Provide a clear, helpful answer to the student's question
- Keep it concise but informative
- Connect the answer to the current concept
- Do NOT ask meta questions like "Does that make sense?"
- Do NOT ask any additional questions here. Only answer the student's question.

Provide a helpful response:`

	INTENT_PROMPT = `You are analyzing a student's input during a tutoring session.

Student's input: "%s"

Current concept: %s

Conversation history (latest first):
%s

Determine if the student is:
1. ASKING_QUESTION - asking a question, requesting explanation, clarification, or help
2. PROVIDING_ANSWER - answering the check question or providing a response to be evaluated
3. ACKNOWLEDGEMENT - short acknowledgements like "yes", "ok", "got it", "thanks", indicating they understood and are ready to proceed

Respond with only one word: ASKING_QUESTION or PROVIDING_ANSWER or ACKNOWLEDGEMENT`

	RELEVANCE_PROMPT = `You are deciding whether a student's input belongs in a tutoring session about one specific concept.

Student's input: "%s"

Current concept: %s
Concept content:
%s

Classify strictly. Questions about the concept, its content, or closely related ideas are RELEVANT. Anything else - other topics, personal questions, questions about people, small talk - is IRRELEVANT.

Respond with only one word: RELEVANT or IRRELEVANT`

	SUMMARY_PROMPT = `You are wrapping up a tutoring session.

The student mastered %d of %d concepts.

Conversation history (latest first):
%s

Write a short, encouraging closing summary (3-5 sentences): congratulate the student, recap what they mastered, and suggest what to review next. Return only the summary text.`
)
