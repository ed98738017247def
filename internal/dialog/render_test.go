package dialog

import (
	"strings"
	"testing"
)

func TestRenderConversation(t *testing.T) {
	conv := NewConversationBuilder().
		WithSystem("Nucleo C.A- Razonbilstro").
		AddUserMessage("como escanear una red").
		Build()

	result := Render(conv)

	if !strings.HasPrefix(result, "<sys> Nucleo C.A- Razonbilstro") {
		t.Errorf("Should start with system marker, got %q", result)
	}

	if !strings.Contains(result, "<usr> como escanear una red") {
		t.Error("Missing user message")
	}

	// Should end with assistant marker to cue the response
	if !strings.HasSuffix(result, "<bot>") {
		t.Errorf("Should end with assistant marker, got %q", result)
	}
}

func TestRenderCommandMessage(t *testing.T) {
	conv := NewConversationBuilder().
		AddUserMessage("escanea la red").
		AddCommandMessage("nmap -sn 192.168.1.0/24").
		Build()

	result := Render(conv)

	if !strings.Contains(result, "<cmd> nmap -sn 192.168.1.0/24") {
		t.Error("Missing command message")
	}
	if strings.Contains(result, "<sys>") {
		t.Error("Should not emit a system marker without a system line")
	}
}

func TestParseResponseSegments(t *testing.T) {
	segments := ParseResponse("<sys> identity <usr> pregunta <bot> respuesta final")

	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d: %+v", len(segments), segments)
	}

	if segments[0].Role != RoleSystem || segments[0].Content != "identity" {
		t.Errorf("Unexpected system segment: %+v", segments[0])
	}
	if segments[1].Role != RoleUser || segments[1].Content != "pregunta" {
		t.Errorf("Unexpected user segment: %+v", segments[1])
	}
	if segments[2].Role != RoleAssistant || segments[2].Content != "respuesta final" {
		t.Errorf("Unexpected assistant segment: %+v", segments[2])
	}
}

func TestParseResponseWithoutMarkers(t *testing.T) {
	segments := ParseResponse("plain model output")

	if len(segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(segments))
	}
	if segments[0].Role != RoleAssistant {
		t.Errorf("Unmarked stream should parse as assistant, got %s", segments[0].Role)
	}
	if segments[0].Content != "plain model output" {
		t.Errorf("Unexpected content: %q", segments[0].Content)
	}
}

func TestParseResponseLeadingText(t *testing.T) {
	segments := ParseResponse("continuation <cmd> ls -la")

	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}
	if segments[0].Role != RoleAssistant || segments[0].Content != "continuation" {
		t.Errorf("Leading text should be an assistant segment: %+v", segments[0])
	}
	if segments[1].Role != RoleCommand || segments[1].Content != "ls -la" {
		t.Errorf("Unexpected command segment: %+v", segments[1])
	}
}

func TestFinalResponse(t *testing.T) {
	got := FinalResponse("<bot> primera <usr> otra <bot> la respuesta")
	if got != "la respuesta" {
		t.Errorf("Expected last assistant segment, got %q", got)
	}

	// No assistant segment: fall back to the last segment
	got = FinalResponse("<cmd> whoami")
	if got != "whoami" {
		t.Errorf("Expected command fallback, got %q", got)
	}

	got = FinalResponse("  raw text  ")
	if got != "raw text" {
		t.Errorf("Expected trimmed raw stream, got %q", got)
	}
}

func TestFormatResponseTemplates(t *testing.T) {
	high := FormatResponse(0, "network scanning", 0.9)
	if !strings.Contains(high, "I understand your query about network scanning.") {
		t.Errorf("Unexpected template: %q", high)
	}
	if !strings.Contains(high, "fairly confident") {
		t.Errorf("High confidence should add confident suffix: %q", high)
	}

	mid := FormatResponse(1, "ports", 0.6)
	if !strings.Contains(mid, "Let me analyze that ports.") {
		t.Errorf("Unexpected template: %q", mid)
	}
	if !strings.Contains(mid, "moderately certain") {
		t.Errorf("Mid confidence should add certain suffix: %q", mid)
	}

	low := FormatResponse(4, "redes", 0.2)
	if !strings.Contains(low, "I'm thinking about redes") {
		t.Errorf("Unexpected template: %q", low)
	}
	if !strings.Contains(low, "preliminary thought") {
		t.Errorf("Low confidence should add preliminary suffix: %q", low)
	}

	// Out-of-range index falls back to the first template
	fallback := FormatResponse(9, "x", 0.9)
	if !strings.Contains(fallback, "I understand your query about x.") {
		t.Errorf("Out-of-range index should use first template: %q", fallback)
	}
}
