package router

import "strings"

// buildContext renders the last six messages as "<role>: <text>" lines,
// skipping messages whose extracted text is empty, then truncates to
// maxChars runes with a trailing ellipsis on overflow.
func buildContext(messages []Message, maxChars int) string {
	recent := messages
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}

	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		text := m.ContentText()
		if text == "" {
			continue
		}
		lines = append(lines, m.Role+": "+text)
	}

	context := strings.Join(lines, "\n")
	return truncateRunes(context, maxChars)
}

func truncateRunes(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + "…"
}

func hasAnyImage(messages []Message) bool {
	for _, m := range messages {
		if m.HasImage() {
			return true
		}
	}
	return false
}
