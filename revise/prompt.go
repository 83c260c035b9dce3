package revise

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an AI assistant specialized in revising and translating presentation transcripts."

// buildPrompt embeds one segment's source text plus the language pair and
// the revision instructions. When source and target languages match, the
// model revises without translating.
func buildPrompt(text, sourceLang, targetLang string, translate bool) string {
	var b strings.Builder

	b.WriteString("You are tasked with revising one segment of a speech-to-text transcript of a presentation video.\n\n")
	b.WriteString("Original transcript segment:\n<transcript>\n")
	b.WriteString(text)
	b.WriteString("\n</transcript>\n\n")
	b.WriteString("Follow ALL of these instructions carefully:\n<instructions>\n")
	b.WriteString("- Correct obvious speech-to-text errors, but you MUST NOT omit phrases, reorder sentences, summarize, or add information that was not spoken.\n")
	b.WriteString("- Remove filler words (such as \"um\", \"uh\", \"like\") and repetitive expressions.\n")
	b.WriteString("- Remove all content within square brackets [ ], such as [music] or speaker labels.\n")
	b.WriteString("- Keep the original speaker's perspective; do not rewrite into third person.\n")

	if translate {
		fmt.Fprintf(&b, "- Translate the revised segment from %s into %s. Retain proper nouns, product names, and domain-specific technical terms in their original form for readability.\n", sourceLang, targetLang)
	} else {
		fmt.Fprintf(&b, "- Keep the output in %s; do not translate.\n", sourceLang)
	}

	b.WriteString("- Output only the revised segment inside a <result></result> tag. You MUST NOT output any other text outside of this tag.\n")
	b.WriteString("</instructions>")

	return b.String()
}

// ExtractResult pulls the payload out of a model response's <result> tag.
func ExtractResult(response string) (string, error) {
	open := strings.Index(response, "<result>")
	if open < 0 {
		return "", fmt.Errorf("model response missing <result> tag")
	}
	rest := response[open+len("<result>"):]
	close := strings.Index(rest, "</result>")
	if close < 0 {
		return "", fmt.Errorf("model response missing closing </result> tag")
	}
	result := strings.TrimSpace(rest[:close])
	if result == "" {
		return "", fmt.Errorf("model response contains an empty result")
	}
	return result, nil
}
