package dialog

import "strings"

// Render formats a conversation as a marked token stream for the model:
// <sys> system <usr> question <bot>. The trailing assistant marker cues
// the response position.
func Render(c *Conversation) string {
	var b strings.Builder

	if c.System != "" {
		b.WriteString(roleMarkers[RoleSystem])
		b.WriteString(" ")
		b.WriteString(c.System)
	}

	for _, m := range c.Messages {
		marker, ok := roleMarkers[m.Role]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(marker)
		b.WriteString(" ")
		b.WriteString(m.Content)
	}

	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(roleMarkers[RoleAssistant])

	return b.String()
}

// Segment is one typed span of a marked token stream.
type Segment struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var streamMarkers = []struct {
	marker string
	role   Role
}{
	{"<sys>", RoleSystem},
	{"<usr>", RoleUser},
	{"<bot>", RoleAssistant},
	{"<cmd>", RoleCommand},
}

// ParseResponse splits a generated stream into typed segments. Text before
// the first marker, or a stream with no markers at all, is treated as
// assistant output.
func ParseResponse(stream string) []Segment {
	var segments []Segment

	pos, role, size := nextMarker(stream)
	if pos == -1 {
		text := strings.TrimSpace(stream)
		if text == "" {
			return nil
		}
		return []Segment{{Role: RoleAssistant, Content: text}}
	}

	if lead := strings.TrimSpace(stream[:pos]); lead != "" {
		segments = append(segments, Segment{Role: RoleAssistant, Content: lead})
	}

	for pos != -1 {
		rest := stream[pos+size:]
		nextPos, nextRole, nextSize := nextMarker(rest)

		content := rest
		if nextPos != -1 {
			content = rest[:nextPos]
		}
		if content = strings.TrimSpace(content); content != "" {
			segments = append(segments, Segment{Role: role, Content: content})
		}

		stream = rest
		pos, role, size = nextPos, nextRole, nextSize
	}

	return segments
}

// FinalResponse extracts the assistant's reply from a generated stream,
// falling back to the last segment and then the raw stream.
func FinalResponse(stream string) string {
	segments := ParseResponse(stream)
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].Role == RoleAssistant {
			return segments[i].Content
		}
	}
	if len(segments) > 0 {
		return segments[len(segments)-1].Content
	}
	return strings.TrimSpace(stream)
}

func nextMarker(s string) (pos int, role Role, size int) {
	pos = -1
	for _, m := range streamMarkers {
		if i := strings.Index(s, m.marker); i != -1 && (pos == -1 || i < pos) {
			pos, role, size = i, m.role, len(m.marker)
		}
	}
	return pos, role, size
}
