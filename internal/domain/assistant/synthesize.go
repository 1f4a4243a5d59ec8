package assistant

import (
	"strings"
)

// Intent is the coarse phrasing class of a question. It selects a reply
// template and never affects retrieval.
type Intent string

// Intents used when no note matched.
const (
	IntentGreeting  Intent = "greeting"
	IntentHelp      Intent = "help"
	IntentGratitude Intent = "gratitude"
	IntentNotFound  Intent = "not_found"
)

// Intents used when at least one note matched.
const (
	IntentExplain   Intent = "explain"
	IntentProcedure Intent = "procedure"
	IntentCompare   Intent = "compare"
	IntentExample   Intent = "example"
	IntentGeneric   Intent = "generic"
)

const (
	// MaxExcerptLines caps the query-matching lines kept from the context.
	MaxExcerptLines = 10
	// FallbackExcerptLines is how many leading lines are used when none match.
	FallbackExcerptLines = 15
)

const (
	greetingReply = "Hello! I'm your AI study assistant. I can help you with questions about your study notes. " +
		"What would you like to learn about today?"
	helpReply = "I can help you with:\n\n" +
		"• Explaining concepts from your study notes\n" +
		"• Answering questions about specific topics\n" +
		"• Providing examples and clarifications\n" +
		"• Comparing different concepts\n" +
		"• Breaking down complex topics\n\n" +
		"Just ask me anything related to your study materials!"
	gratitudeReply = "You're welcome! Feel free to ask if you have more questions about your study materials."
	notFoundReply  = "I couldn't find specific information about that in your current study notes. " +
		"Could you try rephrasing your question or asking about a different topic that's covered in your uploaded materials?"
)

// generalRule answers a question no note matched.
type generalRule struct {
	intent   Intent
	keywords []string
	reply    string
}

// answerRule wraps an excerpt of the matched notes into a reply.
type answerRule struct {
	intent   Intent
	keywords []string
	render   func(excerpt string, matches []Document) string
}

// Evaluated top to bottom; the first rule with a keyword in the query wins.
var generalRules = []generalRule{
	{IntentGreeting, []string{"hello", "hi", "hey"}, greetingReply},
	{IntentHelp, []string{"help", "what can you do"}, helpReply},
	{IntentGratitude, []string{"thank"}, gratitudeReply},
}

var generalFallback = generalRule{intent: IntentNotFound, reply: notFoundReply}

// Evaluated top to bottom; the first rule with a keyword in the query wins.
var answerRules = []answerRule{
	{IntentExplain, []string{"what", "explain", "define"}, renderExplain},
	{IntentProcedure, []string{"how", "steps", "process"}, renderProcedure},
	{IntentCompare, []string{"difference", "compare", "vs"}, renderCompare},
	{IntentExample, []string{"example", "instance"}, renderExample},
}

var answerFallback = answerRule{intent: IntentGeneric, render: renderGeneric}

// Synthesize builds the reply for a query from the ranked matches.
// With no matches it answers small talk or says nothing was found; otherwise it
// quotes the lines of the matched notes that mention the query.
func Synthesize(query string, matches []Document) Reply {
	if len(matches) == 0 {
		rule := classifyGeneral(query)
		return Reply{Text: rule.reply, RelatedDocumentIDs: []string{}, Intent: rule.intent}
	}

	rule := classifyAnswer(query)
	excerpt := ExtractKeyInfo(BuildContext(matches), query)

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}

	return Reply{Text: rule.render(excerpt, matches), RelatedDocumentIDs: ids, Intent: rule.intent}
}

// ClassifyGeneral returns the intent used for a query that matched no note.
func ClassifyGeneral(query string) Intent {
	return classifyGeneral(query).intent
}

// ClassifyAnswer returns the intent used for a query that matched some notes.
func ClassifyAnswer(query string) Intent {
	return classifyAnswer(query).intent
}

func classifyGeneral(query string) generalRule {
	q := strings.ToLower(query)
	for _, r := range generalRules {
		if containsAny(q, r.keywords) {
			return r
		}
	}
	return generalFallback
}

func classifyAnswer(query string) answerRule {
	q := strings.ToLower(query)
	for _, r := range answerRules {
		if containsAny(q, r.keywords) {
			return r
		}
	}
	return answerFallback
}

// BuildContext renders the matched notes as Title/Subject/Content blocks
// separated by a blank line, in ranked order.
func BuildContext(matches []Document) string {
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = "Title: " + m.Title + "\nSubject: " + m.Subject + "\nContent: " + m.Content()
	}
	return strings.Join(blocks, "\n\n")
}

// ExtractKeyInfo keeps the non-blank context lines that contain a query token,
// in their original order and at most MaxExcerptLines of them. When no line
// qualifies it returns the first FallbackExcerptLines non-blank lines instead.
func ExtractKeyInfo(context, query string) string {
	var lines []string
	for _, line := range strings.Split(context, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	tokens := Tokenize(query)

	relevant := make([]string, 0, MaxExcerptLines)
	for _, line := range lines {
		if len(relevant) == MaxExcerptLines {
			break
		}
		if containsAny(strings.ToLower(line), tokens) {
			relevant = append(relevant, line)
		}
	}
	if len(relevant) > 0 {
		return strings.Join(relevant, "\n")
	}

	if len(lines) > FallbackExcerptLines {
		lines = lines[:FallbackExcerptLines]
	}
	return strings.Join(lines, "\n")
}

func renderExplain(excerpt string, matches []Document) string {
	return "Based on the study notes in " + joinSubjects(matches) + ", here's what I found:\n\n" +
		excerpt +
		"\n\nThe information above is from the following notes: " + joinTitles(matches) +
		". Would you like me to elaborate on any specific aspect?"
}

func renderProcedure(excerpt string, matches []Document) string {
	return "Here's how to approach this based on your study materials:\n\n" +
		excerpt +
		"\n\nThis information comes from: " + joinTitles(matches) +
		". Let me know if you need more details on any step!"
}

func renderCompare(excerpt string, matches []Document) string {
	return "Let me help you understand the differences:\n\n" +
		excerpt +
		"\n\nReference materials: " + joinTitles(matches) +
		". Would you like me to explain any particular difference in more detail?"
}

func renderExample(excerpt string, matches []Document) string {
	return "Here are some relevant examples from your study notes:\n\n" +
		excerpt +
		"\n\nThese examples are from: " + joinTitles(matches) + ". Need more examples?"
}

func renderGeneric(excerpt string, matches []Document) string {
	return "Based on your study notes (" + joinTitles(matches) + "), here's what I found:\n\n" +
		excerpt +
		"\n\nFeel free to ask follow-up questions for clarification!"
}

func joinTitles(matches []Document) string {
	titles := make([]string, len(matches))
	for i, m := range matches {
		titles[i] = m.Title
	}
	return strings.Join(titles, ", ")
}

func joinSubjects(matches []Document) string {
	subjects := make([]string, len(matches))
	for i, m := range matches {
		subjects[i] = m.Subject
	}
	return strings.Join(subjects, ", ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
