package engine

import (
	"fmt"
	"strings"

	"github.com/tabletalk/tabletalk/internal/examples"
	"github.com/tabletalk/tabletalk/internal/session"
)

const routePromptTemplate = `You are TableTalk, a conversational analytics assistant for a sales data warehouse.

Conversation so far:
%s

Question: %s

If the conversation above already contains everything needed to answer the question, reply with the answer text and nothing else. If answering requires running a fresh database query, reply with exactly one word: database`

const selectPromptTemplate = `The warehouse exposes the following tables:

%s
Question: %s

Return the tables needed to answer the question as JSON in the form {"tables": [{"name": "<qualified table name>"}]}. Use only table names that appear above. Return {"tables": []} if none apply. Reply with the JSON only.`

const generatePromptTemplate = `You translate analytics questions into a single SQL statement for the warehouse described below. Use only the listed tables and columns. Return one statement and nothing else.

Schema:
%s
Worked examples:
%s
Conversation so far:
%s

Question: %s
SQL Query:`

const insightPromptTemplate = `The following SQL statement was executed against the sales warehouse:

%s

First rows of the result:
%s
Summarize what the result shows in two or three sentences of plain business language. Mention concrete figures where they matter. Do not restate the SQL.`

// renderHistory flattens messages into "role: content" lines for
// prompt interpolation.
func renderHistory(history []session.Message) string {
	if len(history) == 0 {
		return "(no prior messages)"
	}
	lines := make([]string, len(history))
	for i, msg := range history {
		lines[i] = msg.Role + ": " + msg.Content
	}
	return strings.Join(lines, "\n")
}

func renderExamples(selected []examples.Example) string {
	var b strings.Builder
	for _, example := range selected {
		fmt.Fprintf(&b, "Question: %s\nSQL: %s\nContext: %s\n\n", example.Question, example.SQL, example.Context)
	}
	return b.String()
}

// buildGenerationPrompt interpolates the generation prompt. The order
// is fixed: schema, then examples, then history, then the question.
func buildGenerationPrompt(question, schemaText string, selected []examples.Example, history []session.Message) string {
	return fmt.Sprintf(generatePromptTemplate, schemaText, renderExamples(selected), renderHistory(history), question)
}
