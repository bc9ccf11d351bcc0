package router

import "encoding/json"

// Request is the already-parsed Claude-shape inbound request the router
// decides a model for. Translating an OpenAI-chat-shape request into this
// form is a different module's job.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	System   *System   `json:"system,omitempty"`
	Tools    []any     `json:"tools,omitempty"`
}

// Message is one turn of a Claude-shape conversation. Content is either a
// plain string or an array of content blocks; ContentText extracts either
// shape into a single string.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ContentText flattens m.Content into a single string. A structured content
// array is flattened block by block: text blocks pass through verbatim,
// tool_use, tool_result, image, document, server_tool_use and
// web_search_tool_result blocks become literal placeholders, and thinking,
// redacted-thinking and unrecognized block types are dropped entirely.
func (m Message) ContentText() string {
	var asString string
	if json.Unmarshal(m.Content, &asString) == nil {
		return asString
	}

	var blocks []contentBlock
	if json.Unmarshal(m.Content, &blocks) != nil {
		return ""
	}

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if part, ok := b.placeholder(); ok {
			parts = append(parts, part)
		}
	}
	return joinWithSpace(parts)
}

// HasImage reports whether m.Content contains an image block.
func (m Message) HasImage() bool {
	var blocks []contentBlock
	if json.Unmarshal(m.Content, &blocks) != nil {
		return false
	}
	for _, b := range blocks {
		if b.Type == "image" {
			return true
		}
	}
	return false
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

// placeholder returns the text this block contributes to a flattened
// message, and whether it contributes anything at all (thinking blocks are
// dropped entirely, not even as a placeholder).
func (b contentBlock) placeholder() (string, bool) {
	switch b.Type {
	case "text":
		return b.Text, true
	case "tool_use":
		return "[tool_use:" + b.Name + "]", true
	case "tool_result":
		return "[tool_result]", true
	case "image":
		return "[image]", true
	case "document":
		return "[document]", true
	case "server_tool_use":
		return "[server_tool:" + b.Name + "]", true
	case "web_search_tool_result":
		return "[web_search_result]", true
	case "thinking", "redacted_thinking":
		return "", false
	default:
		return "", false
	}
}

func joinWithSpace(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// System is a Claude-shape system prompt: either a plain string or an array
// of text blocks.
type System struct {
	raw json.RawMessage
}

func (s *System) UnmarshalJSON(data []byte) error {
	s.raw = append([]byte(nil), data...)
	return nil
}

func (s *System) MarshalJSON() ([]byte, error) {
	if s == nil || s.raw == nil {
		return []byte("null"), nil
	}
	return s.raw, nil
}

// Render flattens the system prompt into a single string, joining array
// blocks with newlines, the same shape original_source's render_system_prompt
// produces.
func (s *System) Render() string {
	if s == nil || s.raw == nil {
		return "-"
	}

	var asString string
	if json.Unmarshal(s.raw, &asString) == nil {
		return asString
	}

	var blocks []struct {
		Text string `json:"text"`
	}
	if json.Unmarshal(s.raw, &blocks) != nil {
		return "-"
	}
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	out := ""
	for i, t := range texts {
		if i > 0 {
			out += "\n"
		}
		out += t
	}
	return out
}
