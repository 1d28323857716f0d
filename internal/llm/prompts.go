package llm

import (
	"fmt"
	"strings"
)

// SummarySystemInstruction primes the model for relationship-aware
// code summaries.
const SummarySystemInstruction = `You are a software documentation expert. Given a source-code declaration and its metadata, write a clear, concise, relationship-aware summary. Summaries of the code the declaration depends on are provided when available; ground your description in them instead of guessing.`

// LabeledChunk is one piece of context text labeled with the qualified
// name it belongs to.
type LabeledChunk struct {
	QualifiedName string
	Text          string
}

// SummaryPrompt formats the context bundle for one symbol: its own
// source, the already-produced summaries of its dependencies, and any
// related chunks retrieved from the similarity store.
func SummaryPrompt(qualifiedName, filePath, code string, deps, related []LabeledChunk) string {
	var sb strings.Builder
	sb.WriteString("Generate a 4-6 sentence summary focusing on the internal logic structure and architectural relationships.\n\n")

	sb.WriteString("<TARGET>\n")
	fmt.Fprintf(&sb, "name: %s\n", qualifiedName)
	fmt.Fprintf(&sb, "file_path: %s\n", filePath)
	sb.WriteString("code:\n```\n")
	sb.WriteString(code)
	sb.WriteString("\n```\n</TARGET>\n")

	if len(deps) > 0 {
		sb.WriteString("\n<DEPENDENCY_SUMMARIES>\n")
		for _, d := range deps {
			fmt.Fprintf(&sb, "- %s: %s\n", d.QualifiedName, d.Text)
		}
		sb.WriteString("</DEPENDENCY_SUMMARIES>\n")
	}

	if len(related) > 0 {
		sb.WriteString("\n<RELATED_CODE>\n")
		for _, r := range related {
			fmt.Fprintf(&sb, "- %s: %s\n", r.QualifiedName, r.Text)
		}
		sb.WriteString("</RELATED_CODE>\n")
	}

	sb.WriteString("\nBegin!\n")
	return sb.String()
}

func cleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```markdown")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
