package ai

import (
	"fmt"
	"strings"
)

const promptTemplate = `Analyze this note and provide:
1. Exactly 3-4 relevant tags (single words, lowercase, no special characters)
2. A smart summary that explains WHY this note matters, what category it belongs to, or what the user is trying to achieve. Do not just repeat what is written; provide insight about the note's purpose, urgency, or context. Keep it concise and valuable (%d characters maximum, including letters, spaces, and punctuation).

Note Title: %q
Note Content: %q

Examples of good summaries:
- "Weekend productivity plan with home maintenance tasks and built-in motivation system"
- "Recipe collection for quick weeknight meals under 30 minutes"
- "Meeting notes from Q4 planning session with action items for marketing team"

Return ONLY a JSON object in this exact format:
{"tags": ["tag1", "tag2", "tag3", "tag4"], "summary": "Insightful summary here."}`

// BuildPrompt renders the enrichment request for a note.
func BuildPrompt(title, body string) string {
	return fmt.Sprintf(promptTemplate, MaxSummaryLength, strings.TrimSpace(title), strings.TrimSpace(body))
}
