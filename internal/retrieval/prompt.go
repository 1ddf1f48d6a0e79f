package retrieval

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/brandchat/internal/corpus"
)

// personaPrompt is the system message sent with every generation call.
const personaPrompt = `You are the friendly assistant on a designer's portfolio website.
Speak in the first person plural about the studio's work ("we", "our").
Keep answers warm, concise and concrete: two or three short paragraphs at most.
Only state facts that appear in the provided knowledge. If the knowledge does not
cover the question, say so honestly and suggest getting in touch through the
contact form instead of guessing.
Never invent clients, numbers, dates or links.`

// BuildPrompt assembles the user-turn prompt: a style preamble, the selected
// documents with attribution headers, and the literal question.
func BuildPrompt(query string, docs []corpus.Document) string {
	var sb strings.Builder
	sb.WriteString("Answer the visitor's question using the knowledge below. ")
	sb.WriteString("Refer to case studies, talks and articles by their titles when you use them.\n\n")

	sb.WriteString("Knowledge:\n")
	if len(docs) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, d := range docs {
		fmt.Fprintf(&sb, "\n[%d] %s (%s)\n", i+1, d.Title(), d.Source)
		sb.WriteString(d.Content)
		sb.WriteString("\n")
	}

	sb.WriteString("\nQuestion:\n")
	sb.WriteString(query)
	sb.WriteString("\n")
	return sb.String()
}
