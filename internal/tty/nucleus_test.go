package tty

import (
	"strings"
	"testing"
)

func TestIsSystemCommand(t *testing.T) {
	commands := []string{
		"ls -la",
		"cd /tmp",
		"pwd",
		"sudo apt update",
		"GIT status",
		"  cat /etc/hosts",
		"nmap -sS 192.168.1.1",
		"msfconsole",
		"python script.py",
	}
	for _, cmd := range commands {
		if !IsSystemCommand(cmd) {
			t.Errorf("%q should classify as a command", cmd)
		}
	}

	conversational := []string{
		"¿Qué hora es?",
		"Explícame qué puedes hacer",
		"hola nucleo",
		"lsof",
		"gitlab is down",
		"",
	}
	for _, text := range conversational {
		if IsSystemCommand(text) {
			t.Errorf("%q should classify as conversation", text)
		}
	}
}

func TestProcessInputConversationOnly(t *testing.T) {
	// Shell never started: everything degrades to conversation
	n := NewNucleus("/bin/bash")

	result := n.ProcessInput("ls -la")
	if result.Type != "conversation" {
		t.Errorf("Commands without a shell should degrade to conversation, got %s", result.Type)
	}
	if !strings.Contains(result.Response, "He procesado su solicitud: ls -la") {
		t.Errorf("Unexpected response: %q", result.Response)
	}

	result = n.ProcessInput("¿Qué puedes hacer?")
	if result.Type != "conversation" {
		t.Errorf("Expected conversation, got %s", result.Type)
	}
	if result.Execution != nil {
		t.Error("Conversation result should not carry an execution")
	}
}

func TestExecuteCommandInactive(t *testing.T) {
	n := NewNucleus("")

	result := n.ExecuteCommand("ls")
	if result.Success {
		t.Error("Execution without a shell should fail")
	}
	if result.Error != "TTY no activo" {
		t.Errorf("Unexpected error: %q", result.Error)
	}
}

func TestNewNucleusDefaultShell(t *testing.T) {
	n := NewNucleus("")
	if n.shell != "/bin/bash" {
		t.Errorf("Expected default shell /bin/bash, got %s", n.shell)
	}
	if n.Active() {
		t.Error("Nucleus should start inactive")
	}
}

func TestStopWithoutStart(t *testing.T) {
	n := NewNucleus("")
	// Must not panic
	n.Stop()
}

func TestGroupFor(t *testing.T) {
	group, ok := GroupFor("microphone")
	if !ok || group != "audio" {
		t.Errorf("Expected audio group, got %q, %v", group, ok)
	}
	if _, ok := GroupFor("teleport"); ok {
		t.Error("Unknown permission should not resolve")
	}
}

func TestHasGroup(t *testing.T) {
	p := Permissions{Groups: []string{"audio", "users"}}
	if !p.HasGroup("microphone") {
		t.Error("audio group should grant microphone")
	}
	if p.HasGroup("camera") {
		t.Error("Missing video group should not grant camera")
	}
	if p.HasGroup("unknown") {
		t.Error("Unknown permission should not be granted")
	}
}
