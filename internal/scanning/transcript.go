package scanning

import "strings"

// transcribePrompt is shared by the LLM backed extractors. The parsing
// engine does the interpretation, so the model is asked for a plain
// transcription only.
const transcribePrompt = `You are an OCR engine. Transcribe every piece of text visible in this receipt image.

Rules:
- Keep the original line structure: one printed line per output line, top to bottom
- Keep numbers, prices, dates, currency symbols and punctuation exactly as printed
- Separate columns on the same printed line with two spaces
- Do not summarize, translate, correct or explain anything
- Do not use markdown or code blocks
- If there is no readable text, return an empty response`

// cleanTranscript strips wrapping a model may add around a transcription.
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```text")
		text = strings.TrimPrefix(text, "```plaintext")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}
