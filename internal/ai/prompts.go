package ai

import (
	"fmt"
	"strings"
)

// ReviewSystemPrompt frames the model as a reviewer of recovered text
const ReviewSystemPrompt = `You review the output of a heuristic recovery tool that tries to restore PHP source from protected files.
The tool tried many decode hypotheses and kept the one that looked most like PHP. Judge whether it really is source.

OUTPUT: Valid JSON only, no markdown.
{
  "verdict": "source|partial|obfuscated|garbage",
  "confidence": 0-100,
  "summary": "what the code does, or why it is not code",
  "indicators": ["specific evidence quoted from the text"],
  "next_steps": "what to try next if the recovery is incomplete"
}

VERDICT CRITERIA:

source: coherent PHP with declarations, control flow and meaningful identifiers.
partial: recognisable PHP mixed with binary noise, truncated blocks or undecoded blobs.
obfuscated: syntactically plausible PHP that still hides its logic (eval chains, packed strings, renamed identifiers).
garbage: accidental matches of PHP keywords inside noise.

Quote the text that supports your verdict. Never invent code that is not present.`

// BuildReviewPrompt builds the user prompt for one review
func BuildReviewPrompt(req *ReviewRequest, maxSource int) string {
	var sb strings.Builder

	sb.WriteString("## Recovery\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| File | `%s` |\n", req.FilePath))
	sb.WriteString(fmt.Sprintf("| Method | %s (%s) |\n", req.Method, req.Variant))
	if req.Framing != "" {
		sb.WriteString(fmt.Sprintf("| Framing | %s |\n", req.Framing))
	}
	sb.WriteString(fmt.Sprintf("| Score | %d / threshold %d |\n", req.Score, req.Threshold))
	sb.WriteString(fmt.Sprintf("| Accepted | %t |\n", req.Accepted))
	if len(req.Markers) > 0 {
		sb.WriteString(fmt.Sprintf("| Markers | %s |\n", strings.Join(req.Markers, ", ")))
	}
	if len(req.Layers) > 0 {
		sb.WriteString(fmt.Sprintf("| Unwrapped layers | %s |\n", strings.Join(req.Layers, " → ")))
	}

	sb.WriteString("\n## Text\n\n```php\n")
	sb.WriteString(truncateCode(req.Source, maxSource))
	sb.WriteString("\n```\n")

	return sb.String()
}

// truncateCode truncates code to a maximum length while preserving complete lines
// and keeping both the beginning and end of the code for context
func truncateCode(code string, maxLen int) string {
	code = strings.TrimSpace(code)
	if maxLen <= 0 || len(code) <= maxLen {
		return code
	}

	// For very long code, keep beginning and end
	if len(code) > maxLen*2 {
		headLen := maxLen * 2 / 3
		tailLen := maxLen / 3

		head := code[:headLen]
		tail := code[len(code)-tailLen:]

		// Find clean break points
		if idx := strings.LastIndex(head, "\n"); idx > headLen/2 {
			head = head[:idx]
		}
		if idx := strings.Index(tail, "\n"); idx > 0 && idx < tailLen/2 {
			tail = tail[idx+1:]
		}

		return head + "\n\n... [" + fmt.Sprintf("%d bytes truncated", len(code)-len(head)-len(tail)) + "] ...\n\n" + tail
	}

	// For moderately long code, just truncate from end
	truncated := code[:maxLen]
	if idx := strings.LastIndex(truncated, "\n"); idx > maxLen/2 {
		truncated = truncated[:idx]
	}

	return truncated + "\n... [truncated]"
}
