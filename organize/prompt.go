package organize

import (
	"fmt"
	"strings"

	"video2doc/language"
)

// summaryBaseLength is the target summary length in characters for English;
// other languages scale it by their character ratio.
const summaryBaseLength = 300

func buildSummaryPrompt(paragraphs []string, sourceLang, targetLang string) string {
	sourceRatio := language.CharacterRatio(sourceLang)
	targetRatio := language.CharacterRatio(targetLang)
	targetLength := int(summaryBaseLength * (sourceRatio / targetRatio))
	targetName := languageName(targetLang)

	var b strings.Builder
	b.WriteString("Please carefully read the content of the session transcript below and follow the instructions at the end.\n<content>\n")
	b.WriteString(strings.Join(paragraphs, "\n"))
	b.WriteString("\n</content>\n\n<instruction>\n")
	fmt.Fprintf(&b, "- Your task is to write a summary of the session video content in approximately %d characters.\n", targetLength)
	b.WriteString("- Based solely on the content within the <content> tag, cover the main topics discussed in the session and write a text that correctly conveys the overall context of what is mentioned in the session.\n")
	b.WriteString("- Absolutely do not write about anything not mentioned within the <content> tag.\n")
	fmt.Fprintf(&b, "- Write the summary in natural %s, starting with \"In this video,\" (translated to %s).\n", targetName, targetName)
	b.WriteString("- Be conscious of mentioning specific data and unique insights to avoid creating a vague summary.\n")
	b.WriteString("- For proper nouns including people's names, job titles, company names, function names, method names, and technical terms, always use the original terms exactly as they appear in the <content> tag without translation.\n")
	b.WriteString("- Do not mention the presentation time.\n")
	b.WriteString("- Output the result within <result> tags. Do not include any other tags within the result, and do not output anything before or after the <result> tags.\n")
	b.WriteString("</instruction>")
	return b.String()
}

func buildChaptersPrompt(paragraphs []string, targetLang string) string {
	targetName := languageName(targetLang)
	targetSegments := len(paragraphs) / 8
	if targetSegments < 1 {
		targetSegments = 1
	}

	var b strings.Builder
	b.WriteString("Below is an article created from a presentation video transcript.\n")
	b.WriteString("The article is divided into paragraphs, each provided as a paragraph element. Please read it carefully and follow the instructions below. Note that paragraph IDs are consecutive integers starting from 1.\n<article>\n")
	for i, p := range paragraphs {
		fmt.Fprintf(&b, "<paragraph id=\"%d\">\n%s\n</paragraph>\n", i+1, p)
	}
	b.WriteString("</article>\n\n<instruction>\n")
	fmt.Fprintf(&b, "Step 1. Divide the entire article into approximately %d segments (meaningful chunks of consecutive paragraphs) based on the flow of content: topic changes, new concepts, speaker changes, shifts in timeline or perspective.\n", targetSegments)
	b.WriteString("Step 2. Create a concrete, concise heading for each segment, reusing important terms from the segment; keep proper nouns exactly as written, and do not preview the next segment.\n")
	b.WriteString("Step 3. Output the result as JSON within <result> tags:\n")
	b.WriteString("<result>\n[\n    {\"segment_start_id\": <first paragraph ID>, \"segment_end_id\": <last paragraph ID>, \"title\": \"<segment heading>\"},\n    ...\n]\n</result>\n\n")
	fmt.Fprintf(&b, "Note:\n- Write the headings in %s.\n", targetName)
	b.WriteString("- For short articles a single segment is acceptable.\n")
	b.WriteString("- The first segment must start at paragraph ID 1, and each segment_start_id must be one greater than the previous segment_end_id.\n")
	b.WriteString("</instruction>")
	return b.String()
}

func languageName(code string) string {
	if name, err := language.Name(code); err == nil {
		return name
	}
	return code
}
