package dialog

import "fmt"

// responseTemplates are the canned chat responses, indexed by the
// network's output classes.
var responseTemplates = [...]string{
	"I understand your query about %s.",
	"Let me analyze that %s.",
	"I'm processing your request about %s.",
	"Interesting question about %s.",
	"I'm thinking about %s",
}

// FormatResponse renders the template for an output class with the given
// topic and appends a confidence indicator.
func FormatResponse(index int, topic string, confidence float64) string {
	if index < 0 || index >= len(responseTemplates) {
		index = 0
	}

	response := fmt.Sprintf(responseTemplates[index], topic)

	switch {
	case confidence > 0.8:
		response += " I'm fairly confident in my analysis."
	case confidence > 0.5:
		response += " I'm moderately certain about this."
	default:
		response += " This is just my preliminary thought."
	}

	return response
}
